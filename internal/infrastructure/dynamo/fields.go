package dynamo

// DynamoDB attribute names the repos themselves write in update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUsed      = "used"
	fieldUpdatedAt = "updated_at"
)
