package colibri

import "github.com/pion/sdp/v3"

// MediaType distinguishes the two independently force-mutable media kinds
// a participant carries (§4.4: "audio and video force-mute media children").
type MediaType int

const (
	MediaAudio MediaType = iota
	MediaVideo
)

// String returns the wire name used by the control channel.
func (m MediaType) String() string {
	if m == MediaVideo {
		return "video"
	}
	return "audio"
}

// ForceMuteUpdate is one participant's target force-mute state for one
// media type. SessionManager.Mute batches these per session before sending
// a single RPC, mirroring §4.5's "queue the participant into a per-session
// set; after aggregating, send one force-mute batch per session".
type ForceMuteUpdate struct {
	ParticipantID string
	MediaType     MediaType
	Mute          bool
}

// ParticipantInfo is everything a session needs to know about one endpoint
// allocated on a bridge. Sources is left as raw SDP media descriptions --
// colibri2 signaling treats the media content as opaque payload to relay,
// not something this layer parses or validates.
type ParticipantInfo struct {
	ID         string
	Region     string
	Visitor    bool
	AudioMuted bool
	VideoMuted bool
	Sources    []*sdp.MediaDescription
}

// Muted returns the participant's current mute flag for mediaType.
func (p *ParticipantInfo) Muted(mediaType MediaType) bool {
	if mediaType == MediaVideo {
		return p.VideoMuted
	}
	return p.AudioMuted
}

// Clone returns a shallow copy safe to hand to a caller without risking a
// concurrent mutation of the session's own record.
func (p *ParticipantInfo) Clone() *ParticipantInfo {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Sources = append([]*sdp.MediaDescription(nil), p.Sources...)
	return &cp
}
