package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"

	"stressvision/internal/logger"
	"stressvision/internal/models"
)

// Encoder renders an output frame into an image file format.
type Encoder func(frame models.OutputFrame) ([]byte, error)

// PreviewMessage is sent to viewers for every written frame.
type PreviewMessage struct {
	RunID  string `json:"run"`
	Frame  int    `json:"frame"`
	Phase  string `json:"phase"`
	Misses int    `json:"misses"`
	Faces  int    `json:"faces"`
	Image  string `json:"image,omitempty"`
}

// Preview streams annotated frames to the hub. Frames are only encoded when
// somebody is watching.
type Preview struct {
	hub    *HubService
	encode Encoder
	runID  string
	logger *logger.Logger

	mu   sync.RWMutex
	last PreviewMessage
}

func NewPreview(hub *HubService, encode Encoder, logger *logger.Logger) *Preview {
	return &Preview{hub: hub, encode: encode, logger: logger}
}

// SetRun tags following messages with runID.
func (p *Preview) SetRun(runID string) {
	p.mu.Lock()
	p.runID = runID
	p.last = PreviewMessage{RunID: runID}
	p.mu.Unlock()
}

// OnFrame implements pipeline.Observer.
func (p *Preview) OnFrame(ctx context.Context, frame models.OutputFrame) {
	p.mu.Lock()
	msg := PreviewMessage{
		RunID:  p.runID,
		Frame:  frame.Frame.Index,
		Phase:  frame.State.Phase.String(),
		Misses: frame.State.Misses,
		Faces:  len(frame.Result.Boxes),
	}
	p.last = msg
	p.mu.Unlock()

	if p.hub.GetClientCount() == 0 {
		return
	}

	if p.encode != nil {
		data, err := p.encode(frame)
		if err != nil {
			p.logger.Warning("Preview of frame %d not sent: %v", frame.Frame.Index, err)
			return
		}
		msg.Image = base64.StdEncoding.EncodeToString(data)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("Error encoding preview message: %v", err)
		return
	}
	p.hub.Broadcast(payload)
}

// Last returns the metadata of the most recent frame.
func (p *Preview) Last() PreviewMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}
