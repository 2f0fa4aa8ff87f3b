package push

import "fmt"

// TypeIncomingCall is the machine-readable type tag the client app switches on.
const TypeIncomingCall = "incoming_call"

// RingPayload is the structured wake notification for an incoming call.
//
// Data is the machine-readable section carrying everything the callee app
// needs to join the channel. Display is what the platform may show while the
// app is waking up. Priority and ContentAvailable direct the platform to wake
// the app even when it is backgrounded.
type RingPayload struct {
	Data    RingData    `json:"data"`
	Display RingDisplay `json:"notification"`

	Priority         string `json:"priority"`
	ContentAvailable bool   `json:"content_available"`
}

type RingData struct {
	Type        string `json:"type"`
	CallID      string `json:"call_id"`
	CallerID    string `json:"caller_id"`
	ChannelName string `json:"channel_name"`
	MediaToken  string `json:"media_token"`
}

type RingDisplay struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound,omitempty"`
}

// NewRingPayload builds the ring notification for one call. Construction is
// deterministic and side-effect-free; only Dispatcher.Send touches the
// outside world.
func NewRingPayload(callID, callerID, channelName, mediaToken string) RingPayload {
	return RingPayload{
		Data: RingData{
			Type:        TypeIncomingCall,
			CallID:      callID,
			CallerID:    callerID,
			ChannelName: channelName,
			MediaToken:  mediaToken,
		},
		Display: RingDisplay{
			Title: "Incoming call",
			Body:  fmt.Sprintf("%s is calling", callerID),
			Sound: "default",
		},
		Priority:         "high",
		ContentAvailable: true,
	}
}
