package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FrontGate/FrontGate/pkg/common"
)

func TestCapture(t *testing.T) {
	frame := []byte("jpeg-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != captureEndpoint {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req captureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		if req.StreamHandle != "front-door" {
			t.Errorf("unexpected stream %q", req.StreamHandle)
		}

		_, _ = w.Write(frame)
	}))
	defer server.Close()

	client := NewClient(server.URL, "visitors")

	got, err := client.Capture(context.TODO(), "front-door")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	if !bytes.Equal(got, frame) {
		t.Errorf("unexpected frame %q", got)
	}
}

func TestCaptureNoFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "visitors")

	if _, err := client.Capture(context.TODO(), "front-door"); err != common.ErrNoFrame {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}

func TestIndexFace(t *testing.T) {
	image := []byte("jpeg-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != indexEndpoint {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req indexRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		if req.Collection != "visitors" {
			t.Errorf("unexpected collection %q", req.Collection)
		}

		if req.Image != base64.StdEncoding.EncodeToString(image) {
			t.Error("image was not base64-encoded")
		}

		_ = json.NewEncoder(w).Encode(&indexResponse{
			FaceRecords: []struct {
				FaceID string `json:"faceId"`
			}{{FaceID: "face-42"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "visitors")

	result, err := client.IndexFace(context.TODO(), image)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}

	if !result.Found || (result.FaceID != "face-42") {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestIndexFaceNoneDetected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&indexResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "visitors")

	result, err := client.IndexFace(context.TODO(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}

	if result.Found {
		t.Error("expected no face detected")
	}
}
