// Package router exposes the users and subscribers collections over HTTP.
// Each handler validates its input, makes at most one repository call and
// returns an error that writeError turns into the response.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/thoas/go-funk"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/fenix/internal/gzippedhttp"
	"github.com/patric-chuzhbe/fenix/internal/logger"
	"github.com/patric-chuzhbe/fenix/internal/models"
	"github.com/patric-chuzhbe/fenix/internal/objectid"
)

// maxBodySize caps request bodies at 10 MiB.
const maxBodySize = 10 << 20

type documentFinder interface {
	Find(ctx context.Context, filter models.Document) ([]models.Document, error)
	FindOne(ctx context.Context, filter models.Document) (models.Document, bool, error)
	FindAll(ctx context.Context) ([]models.Document, error)
}

type documentWriter interface {
	Insert(ctx context.Context, document models.Document) (models.Document, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields models.Document) (int64, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type repository interface {
	documentFinder
	documentWriter
}

type pinger interface {
	Ping(ctx context.Context) error
}

// resource binds a repository to the messages its endpoints answer with.
type resource struct {
	repo                repository
	notFoundMessage     string
	updatedMessage      string
	updateFailedMessage string
	deleteFailedMessage string
}

type Router struct {
	users       resource
	subscribers resource
	db          pinger
}

// New builds the HTTP handler. users and subscribers must already be connected.
func New(users, subscribers repository, db pinger) *chi.Mux {
	theRouter := &Router{
		users: resource{
			repo:                users,
			notFoundMessage:     "User no encontrado",
			updatedMessage:      "User actualizado con éxito",
			updateFailedMessage: "Error al actualizar el user",
			deleteFailedMessage: "Error al eliminar el user",
		},
		subscribers: resource{
			repo:                subscribers,
			notFoundMessage:     "Subscriber no encontrado",
			updatedMessage:      "Subscriber actualizado con éxito",
			updateFailedMessage: "Error al actualizar el subscriber",
			deleteFailedMessage: "Error al eliminar el subscriber",
		},
		db: db,
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	router.NotFound(func(res http.ResponseWriter, req *http.Request) {
		writeJSON(res, http.StatusNotFound, map[string]string{keyError: "Ruta no encontrada"})
	})
	router.MethodNotAllowed(func(res http.ResponseWriter, req *http.Request) {
		writeJSON(res, http.StatusMethodNotAllowed, map[string]string{keyError: "Método no permitido"})
	})

	router.Get(`/ping`, handle(theRouter.GetPing))

	router.Get(`/users`, handle(theRouter.GetUsers))
	router.Get(`/users/verify-token`, handle(theRouter.GetUsersVerifytoken))
	router.Get(`/usersList`, handle(theRouter.GetUserslist))
	router.Post(`/users`, handle(theRouter.PostUsers))
	router.Patch(`/users/{id}`, handle(theRouter.PatchUsersID))
	router.Delete(`/users/{id}`, handle(theRouter.DeleteUsersID))

	router.Get(`/subscribers`, handle(theRouter.GetSubscribers))
	router.Post(`/subscribers`, handle(theRouter.PostSubscribers))
	router.Patch(`/subscribers/{id}`, handle(theRouter.PatchSubscribersID))
	router.Delete(`/subscribers/{id}`, handle(theRouter.DeleteSubscribersID))

	return router
}

// GetPing reports whether the document store answers.
func (r *Router) GetPing(res http.ResponseWriter, req *http.Request) error {
	if err := r.db.Ping(req.Context()); err != nil {
		return newStoreError(keyError, msgInternalError, err)
	}

	writeJSON(res, http.StatusOK, models.StatusResponse{Status: "ok"})

	return nil
}

// GetUsers lists the users whose email equals the required `email` query parameter.
func (r *Router) GetUsers(res http.ResponseWriter, req *http.Request) error {
	email := req.URL.Query().Get("email")
	if email == "" {
		return newValidationError(keyError, "El email es obligatorio")
	}

	users, err := r.users.repo.Find(req.Context(), models.Document{"email": email})
	if err != nil {
		return newStoreError(keyError, msgInternalError, err)
	}

	if len(users) == 0 {
		return newNotFoundError(keyError, "Usuario no encontrado")
	}

	writeJSON(res, http.StatusOK, users)

	return nil
}

// GetUsersVerifytoken looks a user up by token. An unknown token is answered with 401.
func (r *Router) GetUsersVerifytoken(res http.ResponseWriter, req *http.Request) error {
	token := req.URL.Query().Get("token")
	if token == "" {
		return newValidationError(keyError, "Token no proporcionado")
	}

	user, found, err := r.users.repo.FindOne(req.Context(), models.Document{"token": token})
	if err != nil {
		return newStoreError(keyError, msgInternalError, err)
	}

	if !found {
		writeJSON(res, http.StatusUnauthorized, models.VerifyTokenResponse{
			IsValid: false,
			Message: "Token inválido",
		})
		return nil
	}

	writeJSON(res, http.StatusOK, models.VerifyTokenResponse{
		IsValid: true,
		User:    user,
	})

	return nil
}

func (r *Router) GetUserslist(res http.ResponseWriter, req *http.Request) error {
	return listDocuments(res, req, r.users, "Error al obtener los usuarios")
}

func (r *Router) GetSubscribers(res http.ResponseWriter, req *http.Request) error {
	return listDocuments(res, req, r.subscribers, "Error al obtener los suscriptores")
}

func (r *Router) PostUsers(res http.ResponseWriter, req *http.Request) error {
	return insertDocument(res, req, r.users)
}

func (r *Router) PostSubscribers(res http.ResponseWriter, req *http.Request) error {
	return insertDocument(res, req, r.subscribers)
}

func (r *Router) PatchUsersID(res http.ResponseWriter, req *http.Request) error {
	return updateDocument(res, req, r.users)
}

func (r *Router) PatchSubscribersID(res http.ResponseWriter, req *http.Request) error {
	return updateDocument(res, req, r.subscribers)
}

func (r *Router) DeleteUsersID(res http.ResponseWriter, req *http.Request) error {
	return deleteDocument(res, req, r.users)
}

func (r *Router) DeleteSubscribersID(res http.ResponseWriter, req *http.Request) error {
	return deleteDocument(res, req, r.subscribers)
}

func listDocuments(res http.ResponseWriter, req *http.Request, target resource, failedMessage string) error {
	documents, err := target.repo.FindAll(req.Context())
	if err != nil {
		return newStoreError(keyError, failedMessage, err)
	}

	if documents == nil {
		documents = []models.Document{}
	}

	writeJSON(res, http.StatusOK, documents)

	return nil
}

func insertDocument(res http.ResponseWriter, req *http.Request, target resource) error {
	document, err := decodeDocument(res, req, keyError)
	if err != nil {
		return err
	}

	stored, err := target.repo.Insert(req.Context(), document)
	if err != nil {
		return newStoreError(keyError, "Error al insertar en la base de datos", err)
	}

	writeJSON(res, http.StatusOK, stored)

	return nil
}

func updateDocument(res http.ResponseWriter, req *http.Request, target resource) error {
	id, err := objectid.Decode(chi.URLParam(req, "id"))
	if err != nil {
		return newValidationError(keyMessage, "ID inválido")
	}

	fields, err := decodeFields(res, req, keyMessage)
	if err != nil {
		return err
	}

	matched, err := target.repo.UpdateFields(req.Context(), id, fields)
	if err != nil {
		return newStoreError(keyMessage, target.updateFailedMessage, err)
	}

	if matched == 0 {
		return newNotFoundError(keyMessage, target.notFoundMessage)
	}

	writeJSON(res, http.StatusOK, models.MessageResponse{Message: target.updatedMessage})

	return nil
}

func deleteDocument(res http.ResponseWriter, req *http.Request, target resource) error {
	id, err := objectid.Decode(chi.URLParam(req, "id"))
	if err != nil {
		return newValidationError(keyMessage, "ID inválido")
	}

	deleted, err := target.repo.DeleteByID(req.Context(), id)
	if err != nil {
		return newStoreError(keyMessage, target.deleteFailedMessage, err)
	}

	if deleted == 0 {
		return newNotFoundError(keyMessage, target.notFoundMessage)
	}

	res.WriteHeader(http.StatusNoContent)

	return nil
}

// decodeDocument reads a JSON object with at least one key from the request body.
func decodeDocument(res http.ResponseWriter, req *http.Request, key string) (models.Document, error) {
	document, err := decodeFields(res, req, key)
	if err != nil {
		return nil, err
	}

	if funk.IsEmpty(document) {
		return nil, newValidationError(key, "El cuerpo de la solicitud está vacío")
	}

	return document, nil
}

// decodeFields reads a JSON object from the request body. An absent body or
// `null` decode to an empty document.
func decodeFields(res http.ResponseWriter, req *http.Request, key string) (models.Document, error) {
	body, err := io.ReadAll(http.MaxBytesReader(res, req.Body, maxBodySize))
	if err != nil {
		return nil, newValidationError(key, "El cuerpo de la solicitud no es válido")
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return models.Document{}, nil
	}

	var document models.Document
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, newValidationError(key, "El cuerpo de la solicitud no es un JSON válido")
	}

	if document == nil {
		return models.Document{}, nil
	}

	return document, nil
}
