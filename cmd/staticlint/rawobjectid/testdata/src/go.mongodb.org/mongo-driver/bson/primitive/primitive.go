package primitive

type ObjectID [12]byte

func ObjectIDFromHex(s string) (ObjectID, error) {
	return ObjectID{}, nil
}

func NewObjectID() ObjectID {
	return ObjectID{}
}
