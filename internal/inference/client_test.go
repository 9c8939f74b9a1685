package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func setupModelServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClientLoad(t *testing.T) {
	server := setupModelServer(t, map[string]http.HandlerFunc{
		"/v1/models/detector": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ModelInfo{Name: "detector", InputShape: []int{1, 3, 300, 300}, Ready: true})
		},
		"/v1/models/warming": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ModelInfo{Name: "warming", Ready: false})
		},
	})

	client := NewClient(server.URL, 0)
	ctx := context.Background()

	model, err := client.Load(ctx, "detector")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if model.Name() != "detector" || len(model.Info().InputShape) != 4 {
		t.Errorf("unexpected model info: %+v", model.Info())
	}

	tests := []string{"missing", "warming", ""}
	for _, name := range tests {
		t.Run("fails for "+name, func(t *testing.T) {
			_, err := client.Load(ctx, name)
			if !errors.Is(err, ErrModelLoad) {
				t.Errorf("expected ErrModelLoad, got %v", err)
			}
		})
	}
}

func TestClientLoad_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, 0).Load(context.Background(), "detector")
	if !errors.Is(err, ErrModelLoad) {
		t.Errorf("expected ErrModelLoad, got %v", err)
	}
}

func TestClientForward(t *testing.T) {
	server := setupModelServer(t, map[string]http.HandlerFunc{
		"/v1/models/doubler/forward": func(w http.ResponseWriter, r *http.Request) {
			if ct := r.Header.Get("Content-Type"); ct != contentTypeMsgpack {
				http.Error(w, "bad content type "+ct, http.StatusUnsupportedMediaType)
				return
			}
			body, _ := io.ReadAll(r.Body)
			var in Tensor
			if err := msgpack.Unmarshal(body, &in); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			out := Tensor{Shape: in.Shape, Data: make([]float32, len(in.Data))}
			for i, v := range in.Data {
				out.Data[i] = v * 2
			}
			payload, _ := msgpack.Marshal(&out)
			w.Header().Set("Content-Type", contentTypeMsgpack)
			w.Write(payload)
		},
		"/v1/models/broken/forward": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "CUDA out of memory", http.StatusInternalServerError)
		},
	})

	client := NewClient(server.URL, 0)
	ctx := context.Background()

	out, err := client.Forward(ctx, "doubler", Tensor{Shape: []int{1, 3}, Data: []float32{1, 2, 3}})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(out.Data) != 3 || out.Data[2] != 6 {
		t.Errorf("unexpected output: %+v", out)
	}

	if _, err := client.Forward(ctx, "broken", Tensor{Shape: []int{1}, Data: []float32{1}}); err == nil {
		t.Error("expected error for 500 response")
	}

	if _, err := client.Forward(ctx, "doubler", Tensor{Shape: []int{2, 2}, Data: []float32{1}}); err == nil {
		t.Error("expected error for malformed input tensor")
	}
}

func TestTensorValidate(t *testing.T) {
	tests := []struct {
		name    string
		tensor  Tensor
		wantErr bool
	}{
		{name: "valid", tensor: NewTensor(1, 3, 2, 2)},
		{name: "no shape", tensor: Tensor{Data: []float32{1}}, wantErr: true},
		{name: "length mismatch", tensor: Tensor{Shape: []int{2}, Data: []float32{1}}, wantErr: true},
		{name: "negative dim", tensor: Tensor{Shape: []int{-1}}, wantErr: true},
		{name: "empty batch", tensor: Tensor{Shape: []int{0, 512}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tensor.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientCheckHealth(t *testing.T) {
	healthy := setupModelServer(t, map[string]http.HandlerFunc{
		"/health": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})
	if err := NewClient(healthy.URL, 0).CheckHealth(context.Background()); err != nil {
		t.Errorf("expected healthy server, got %v", err)
	}

	unhealthy := setupModelServer(t, map[string]http.HandlerFunc{
		"/health": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})
	if err := NewClient(unhealthy.URL, 0).CheckHealth(context.Background()); err == nil {
		t.Error("expected error for unhealthy server")
	}
}
