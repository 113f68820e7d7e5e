package rawobjectid

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/types/typeutil"
)

const (
	primitivePath = "go.mongodb.org/mongo-driver/bson/primitive"
	allowedPkg    = "objectid"
)

// Analyzer reports calls to primitive.ObjectIDFromHex outside the objectid package.
// Path ids must be decoded through objectid.Decode so that a malformed id is always
// answered the same way and never reaches the store.
var Analyzer = &analysis.Analyzer{
	Name: "rawobjectid",
	Doc:  "prohibits primitive.ObjectIDFromHex outside the objectid package",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() == allowedPkg {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Exclude go-build cache files
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			fn, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
			if !ok || fn.Pkg() == nil {
				return true
			}

			if fn.Pkg().Path() == primitivePath && fn.Name() == "ObjectIDFromHex" {
				pass.Reportf(call.Pos(), "decode ids with objectid.Decode instead of primitive.ObjectIDFromHex")
			}

			return true
		})
	}

	return nil, nil
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/") || strings.Contains(path, `\go-build\`)
}
