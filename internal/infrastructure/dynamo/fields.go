package dynamo

// DynamoDB attribute names used in key and condition expressions across repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID    = "user_id"
	fieldUsername  = "username"
	fieldCodeHash  = "code_hash"
	fieldAttempts  = "attempts"
	fieldPurgeAt   = "purge_at"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"

	indexUsername = "username-index"
)
