package models

import "time"

// ModelScore is the accuracy pair reported for one model family
type ModelScore struct {
	TrainAccuracy float64 `bson:"trainAccuracy" json:"train_accuracy"`
	TestAccuracy  float64 `bson:"testAccuracy" json:"test_accuracy"`
	Trained       bool    `bson:"trained" json:"trained"`
}

// TrainingRun records the outcome of one training invocation
type TrainingRun struct {
	ID              string                `bson:"_id" json:"id"`
	Models          map[string]ModelScore `bson:"models" json:"models"`
	TrainedAt       time.Time             `bson:"trainedAt" json:"trained_at"`
	TrainingSamples int                   `bson:"trainingSamples" json:"training_samples"`
	TestSamples     int                   `bson:"testSamples" json:"test_samples"`
	LatestDraw      int                   `bson:"latestDraw" json:"latest_draw"`
	DurationMillis  int64                 `bson:"durationMillis" json:"duration_ms"`
}
