// Package natives holds the table of native entry points a library exposes
// to the VM. Every entry point in a Table runs through the same middleware
// chain, which is where the bridge's error boundary is applied.
package natives

import (
	"context"
	"encoding/json"
	"fmt"
)

// NativeFunc is a native entry point working on raw payload bytes.
type NativeFunc func(ctx context.Context, payload []byte) ([]byte, error)

// TypedFunc is a native entry point with a typed request and response.
type TypedFunc[Req any, Resp any] func(ctx context.Context, req Req) (Resp, error)

// NewJSONNative wraps a TypedFunc into a NativeFunc using JSON for the
// request and response. An empty payload decodes to the zero Req.
func NewJSONNative[Req any, Resp any](fn TypedFunc[Req, Resp]) NativeFunc {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, fmt.Errorf("failed to unmarshal request: %w", err)
			}
		}

		resp, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}

		out, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return out, nil
	}
}
