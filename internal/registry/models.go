package registry

// availabilityResponse is the top-level JSON structure of the status feed.
type availabilityResponse struct {
	Availability []availabilityEntry `json:"availability"`
}

type availabilityEntry struct {
	MessageType string  `json:"message-type"`
	Message     message `json:"message"`
}

type message struct {
	DataMessage dataMessage `json:"data-message"`
}

// dataMessage carries one announced maintenance window. concernedSystem is a
// comma-space-separated list; from/to use the registry's timestamp format.
type dataMessage struct {
	ConcernedSystem string  `json:"concernedSystem"`
	Environment     string  `json:"environment"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	Reason          string  `json:"reason"`
	Remark          *string `json:"remark"`
}
