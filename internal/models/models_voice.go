package models

// VoiceJoinRequest is sent by a client to join the voice room bound to a channel.
type VoiceJoinRequest struct {
	ChannelID string `json:"channel_id"`
}

// VoiceJoinResponse returns the SFU connection parameters the client needs to
// negotiate media after a successful signaling join.
type VoiceJoinResponse struct {
	RoomID       string `json:"room_id"`
	SFUEndpoint  string `json:"sfu_endpoint"`
	SessionToken string `json:"session_token"`
}

// VoiceLeaveRequest leaves a voice room.
type VoiceLeaveRequest struct {
	ChannelID string `json:"channel_id"`
}

// VoiceSignalData carries an opaque SDP/ICE signaling payload between a
// client and the SFU, relayed through the gateway without inspection.
type VoiceSignalData struct {
	ChannelID string `json:"channel_id"`
	Kind      string `json:"kind"`
	Payload   string `json:"payload"`
}

// VoiceStateUpdateData announces a participant's mute/deafen/speaking state.
type VoiceStateUpdateData struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Muted     bool   `json:"muted"`
	Deafened  bool   `json:"deafened"`
	Speaking  bool   `json:"speaking"`
}

// VoiceRoomJoinData/LeaveData are the dispatches fanned out to other room participants.
type VoiceRoomJoinData struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

type VoiceRoomLeaveData struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

// Device is a registered endpoint in a user's endorsement graph. Edges form a
// DAG: a device can be endorsed by one or more already-trusted devices, and
// the graph must never contain a cycle.
type Device struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	Name          string   `json:"name"`
	PublicKey     string   `json:"public_key"`
	EndorsedByIDs []string `json:"endorsed_by_ids,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// RegisterDeviceRequest registers a new device, optionally endorsed by existing ones.
type RegisterDeviceRequest struct {
	Name          string   `json:"name"`
	PublicKey     string   `json:"public_key"`
	EndorsedByIDs []string `json:"endorsed_by_ids,omitempty"`
}
