package session

// InputError is a request the controller refuses without touching its state.
type InputError struct {
	Code    string
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

var (
	ErrEmptyDocument = &InputError{
		Code:    "empty_document",
		Message: "Please paste or upload a document before processing.",
	}
	ErrNoDocument = &InputError{
		Code:    "no_document",
		Message: "Please process a document before asking questions.",
	}
	ErrEmptyQuestion = &InputError{
		Code:    "empty_question",
		Message: "Please enter a question.",
	}
	ErrQueryInFlight = &InputError{
		Code:    "query_in_flight",
		Message: "A question is already being answered. Please wait for it to finish.",
	}
)
