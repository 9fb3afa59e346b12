// Package service holds small infrastructure services shared by the
// command and query handlers.
package service

import "github.com/google/uuid"

// UUIDGenerator hands out random (v4) UUIDs as record ids.
type UUIDGenerator struct{}

// NewIDGenerator creates a UUIDGenerator.
func NewIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// GenerateID returns a new UUID string.
func (g *UUIDGenerator) GenerateID() string {
	return uuid.New().String()
}
