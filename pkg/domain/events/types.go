package events

// EventTypes maps every event type name to a constructor for decoding.
var EventTypes = map[string]func() Event{
	TypeCreditsEarned:       func() Event { return &CreditsEarned{} },
	TypeCreditsSpent:        func() Event { return &CreditsSpent{} },
	TypeConversionRequested: func() Event { return &ConversionRequested{} },
	TypeConversionSettled:   func() Event { return &ConversionSettled{} },
}
