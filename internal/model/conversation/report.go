package conversation

// MaxImages caps how many images a single report carries.
const MaxImages = 5

// NotInformed is sent for resin or printer when the user left them blank.
const NotInformed = "Não informar"

// Image is an attachment borrowed for a single send attempt.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Report is the payload submitted to the chat endpoint. It is built fresh for
// every send attempt and never stored.
type Report struct {
	Phone   string
	Problem string
	Resin   string
	Printer string
	Images  []Image
}

// Reply is the decoded answer of the chat endpoint. A non-empty Error marks a
// business failure reported by the backend.
type Reply struct {
	Text    string `json:"reply"`
	Error   string `json:"error,omitempty"`
	Persona string `json:"persona,omitempty"`
}

// Failed reports whether the backend answered with an explicit error.
func (r Reply) Failed() bool {
	return r.Error != ""
}
