package domain

// GradeBucket labels a grade for display. It never drives control flow.
type GradeBucket string

const (
	BucketGood   GradeBucket = "good"
	BucketMedium GradeBucket = "medium"
	BucketPoor   GradeBucket = "poor"
)

// BucketFor maps a percentage grade to its bucket. Lower bounds are inclusive.
func BucketFor(grade float64) GradeBucket {
	switch {
	case grade >= 80:
		return BucketGood
	case grade >= 60:
		return BucketMedium
	default:
		return BucketPoor
	}
}
