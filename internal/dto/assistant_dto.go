package dto

const (
	InputTypeText     = "text"
	InputTypeFollowup = "followup"

	ResponseTypeFollowUp    = "follow_up"
	ResponseTypeFinalAnswer = "final_answer"
)

type TurnRequest struct {
	SessionId    string `json:"session_id"`
	UserMessage  string `json:"user_message" validate:"required"`
	InputType    string `json:"input_type" validate:"required,oneof=text followup"`
	CurrentField string `json:"current_field"`
}

// FollowUp asks the user for one specific field, optionally with
// disambiguation options.
type FollowUp struct {
	Question  string   `json:"question"`
	FieldName string   `json:"field_name"`
	Options   []string `json:"options,omitempty"`
}

// TurnResponse carries exactly one of FollowUp or Text/Recommendations.
type TurnResponse struct {
	SessionId       string    `json:"session_id"`
	ResponseType    string    `json:"response_type"`
	FollowUp        *FollowUp `json:"followup,omitempty"`
	Text            string    `json:"text,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
}
