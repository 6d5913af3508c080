package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a fresh 24-hex identifier. Both storage backends use the
// same format so ids survive a switch between them.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id has the 24-hex shape produced by NewID.
func ValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}
