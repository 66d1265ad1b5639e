// Package vision talks to the video-analysis service: grabbing one still
// frame from a live stream and registering faces with the recognition index.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
)

const (
	captureEndpoint = "/v1/capture"
	indexEndpoint   = "/v1/faces/index"

	maxFrameSize = 8 * 1024 * 1024
)

type Client struct {
	baseURL    string
	collection string
	client     *http.Client
}

var (
	_ common.FrameCapturer = (*Client)(nil)
	_ common.FaceIndexer   = (*Client)(nil)
)

func NewClient(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		collection: collection,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type captureRequest struct {
	StreamHandle string `json:"streamHandle"`
}

type indexRequest struct {
	Collection string `json:"collection"`
	Image      string `json:"image"`
}

type indexResponse struct {
	FaceRecords []struct {
		FaceID string `json:"faceId"`
	} `json:"faceRecords"`
}

// Capture returns one still image from the stream. A frameless stream is
// reported as common.ErrNoFrame.
func (c *Client) Capture(ctx context.Context, streamHandle string) ([]byte, error) {
	body, err := json.Marshal(&captureRequest{StreamHandle: streamHandle})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+captureEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set(common.HeaderContentType, common.ContentTypeJSON)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		frame, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
		if err != nil {
			return nil, err
		}

		slog.DebugContext(ctx, "Captured frame", "stream", streamHandle, "size", len(frame))
		return frame, nil
	case http.StatusNoContent, http.StatusNotFound:
		return nil, common.ErrNoFrame
	default:
		return nil, fmt.Errorf("capture service returned status %d", resp.StatusCode)
	}
}

// IndexFace registers the largest face on the image with the collection.
// An image without a detectable face is a normal outcome, not an error.
func (c *Client) IndexFace(ctx context.Context, image []byte) (common.IndexResult, error) {
	body, err := json.Marshal(&indexRequest{
		Collection: c.collection,
		Image:      base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return common.IndexResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+indexEndpoint, bytes.NewReader(body))
	if err != nil {
		return common.IndexResult{}, err
	}
	req.Header.Set(common.HeaderContentType, common.ContentTypeJSON)

	resp, err := c.client.Do(req)
	if err != nil {
		return common.IndexResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.IndexResult{}, fmt.Errorf("face indexing returned status %d", resp.StatusCode)
	}

	var decoded indexResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return common.IndexResult{}, err
	}

	if len(decoded.FaceRecords) == 0 {
		slog.DebugContext(ctx, "No face detected on captured frame")
		return common.IndexResult{}, nil
	}

	return common.IndexResult{FaceID: decoded.FaceRecords[0].FaceID, Found: true}, nil
}
