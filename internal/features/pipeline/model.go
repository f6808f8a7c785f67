package pipeline

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Pipeline struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	IsDefault   bool               `json:"is_default" bson:"is_default"`
	IsActive    bool               `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

func New() *Pipeline {
	return &Pipeline{IsActive: true}
}

// Stage is one configured step of a pipeline. Order is unique per pipeline.
type Stage struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PipelineID  primitive.ObjectID `json:"pipeline_id" bson:"pipeline_id"`
	Name        string             `json:"name" bson:"name"`
	Order       int                `json:"order" bson:"order"`
	Probability int                `json:"probability" bson:"probability"`
	IsClosed    bool               `json:"is_closed" bson:"is_closed"`
	IsWon       bool               `json:"is_won" bson:"is_won"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}
