package controlchannel

import "github.com/sebas/focus/internal/focus/colibri"

// The colibri2 service's unary method paths. There is no .proto file backing
// these -- see the package doc comment -- so the paths are just strings
// Invoke sends on the wire, matched against whatever colibri2 endpoint
// implementation is listening on the bridge side.
const (
	methodAllocate          = "/colibri.Colibri/Allocate"
	methodUpdateParticipant = "/colibri.Colibri/UpdateParticipant"
	methodUpdateForceMute   = "/colibri.Colibri/UpdateForceMute"
	methodRemoveParticipant = "/colibri.Colibri/RemoveParticipant"
	methodExpire            = "/colibri.Colibri/Expire"
	methodCreateRelay       = "/colibri.Colibri/CreateRelay"
	methodExpireRelay       = "/colibri.Colibri/ExpireRelay"
)

type allocateWireRequest struct {
	ConferenceID string                   `json:"conference_id"`
	SessionID    string                   `json:"session_id"`
	BridgeJID    string                   `json:"bridge_jid"`
	RelayID      string                   `json:"relay_id,omitempty"`
	Visitor      bool                     `json:"visitor,omitempty"`
	Participant  colibri.ParticipantInfo  `json:"participant"`
}

type allocateWireResponse struct {
	SessionEstablished bool   `json:"session_established"`
	ConferenceID       string `json:"conference_id,omitempty"`
}

type updateParticipantWireRequest struct {
	SessionID   string                  `json:"session_id"`
	Participant colibri.ParticipantInfo `json:"participant"`
}

type forceMuteEntryWire struct {
	ParticipantID string `json:"participant_id"`
	MediaType     string `json:"media_type"`
	Mute          bool   `json:"mute"`
}

type updateForceMuteWireRequest struct {
	SessionID string               `json:"session_id"`
	Updates   []forceMuteEntryWire `json:"updates"`
}

type removeParticipantWireRequest struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

type expireWireRequest struct {
	SessionID string `json:"session_id"`
}

type relayWireRequest struct {
	SessionID       string `json:"session_id"`
	RemoteBridgeJID string `json:"remote_bridge_jid"`
}

type wireEmpty struct{}
