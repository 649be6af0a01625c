package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Keys used in the system_config collection
const (
	ConfigKeyLastSync = "last_sync"
)

// SystemConfig represents a configuration setting stored in the database
type SystemConfig struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Key         string             `bson:"key" json:"key"`
	Value       interface{}        `bson:"value" json:"value"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
