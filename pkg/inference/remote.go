package inference

import (
	"SkinDetect/internal/entity"
	"SkinDetect/pkg/utils"
	websocketPkg "SkinDetect/pkg/websocket"
	"encoding/json"
	"fmt"
	"image"
	"strconv"

	"golang.org/x/net/context"
)

type remoteBox struct {
	XYXY []float64 `json:"xyxy"`
	Conf float64   `json:"conf"`
	Cls  int       `json:"cls"`
}

type remoteReply struct {
	Names map[string]string `json:"names"`
	Boxes []remoteBox       `json:"boxes"`
	Probs []float64         `json:"probs"`
	Error string            `json:"error"`
}

// Remote forwards frames to an external inference service over a websocket.
type Remote struct {
	ws      websocketPkg.IWebsocket
	classes []string
}

func NewRemote(ws websocketPkg.IWebsocket, classes []string) *Remote {
	return &Remote{
		ws:      ws,
		classes: classes,
	}
}

func (r *Remote) Name() string {
	return BackendRemote
}

func (r *Remote) Classes() []string {
	return r.classes
}

func (r *Remote) Infer(ctx context.Context, img image.Image) (*entity.InferenceOutput, error) {
	frame, err := utils.EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	message, err := r.ws.Exchange(ctx, frame)
	if err != nil {
		return nil, err
	}

	return parseRemoteReply(message, r.classes)
}

func parseRemoteReply(message []byte, fallback []string) (*entity.InferenceOutput, error) {
	var reply remoteReply
	if err := json.Unmarshal(message, &reply); err != nil {
		return nil, fmt.Errorf("error unmarshaling inference reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("inference service: %s", reply.Error)
	}

	out := &entity.InferenceOutput{
		Names: make(map[int]string, len(reply.Names)),
		Probs: reply.Probs,
	}

	for i, name := range fallback {
		out.Names[i] = name
	}
	for k, name := range reply.Names {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid class index %q", k)
		}
		out.Names[idx] = name
	}

	for _, b := range reply.Boxes {
		if len(b.XYXY) != 4 {
			return nil, fmt.Errorf("box has %d coordinates, want 4", len(b.XYXY))
		}
		out.Boxes = append(out.Boxes, entity.CandidateBox{
			X1:         b.XYXY[0],
			Y1:         b.XYXY[1],
			X2:         b.XYXY[2],
			Y2:         b.XYXY[3],
			Confidence: b.Conf,
			Class:      b.Cls,
		})
	}

	return out, nil
}
