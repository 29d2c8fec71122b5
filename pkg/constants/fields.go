package constants

// Column names shared across repositories.
const (
	FieldID               = "id"
	FieldName             = "name"
	FieldCreatedDate      = "created_date"
	FieldLastModifiedDate = "last_modified_date"

	FieldFunnelID               = "funnel_id"
	FieldStageID                = "stage_id"
	FieldPosition               = "position"
	FieldExternalConversationID = "external_conversation_id"
	FieldState                  = "state"
	FieldReturnDate             = "return_date"
	FieldAssignedUserID         = "assigned_user_id"
)

// HTTP header names.
const (
	HeaderAPIKey = "x-api-key"
)

// JSON response keys.
const (
	ResponseSuccess = "success"
	ResponseError   = "error"
	FieldMessage    = "message"
)
