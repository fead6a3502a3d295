package polish

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/zoobzio/capitan"
)

const readBufferSize = 32 << 10

// ConsumeStream posts req to a streaming endpoint and reads the response as it
// arrives. Every chunk that completes at least one character is appended to the
// accumulated text and onPartial is called with the whole text so far, in arrival
// order. onPartial is never called once the attempt deadline has passed.
//
// The attempt fails with KindTimeout when the stream does not finish within the
// stream timeout, KindBadResponse on a non-2xx status or missing body,
// KindInBandError when the final text contains a configured marker, and
// KindEmptyResult when the final text is blank.
func (c *Client) ConsumeStream(ctx context.Context, ep Endpoint, req Request, onPartial func(string)) (string, error) {
	if onPartial == nil {
		onPartial = func(string) {}
	}

	streamCtx, cancel := context.WithTimeout(ctx, c.streamTimeout)
	// Normal completion cancels the timer so a late deadline is a no-op.
	defer cancel()

	httpReq, err := c.newPost(streamCtx, ep, req, "text/plain")
	if err != nil {
		return "", attemptErr(KindNetwork, ep, "", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportErr(ctx, streamCtx, ep, 0, c.streamTimeout, err)
	}
	if resp.Body == nil {
		e := attemptErr(KindBadResponse, ep, "response has no readable body", nil)
		e.Status = resp.StatusCode
		return "", e
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		e := attemptErr(KindBadResponse, ep, "HTTP "+strconv.Itoa(resp.StatusCode), nil)
		e.Status = resp.StatusCode
		return "", e
	}

	dec := newStreamDecoder()
	var acc strings.Builder
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if streamCtx.Err() != nil {
				return "", transportErr(ctx, streamCtx, ep, resp.StatusCode, c.streamTimeout, streamCtx.Err())
			}
			text, err := dec.Decode(buf[:n])
			if err != nil {
				e := attemptErr(KindBadResponse, ep, "undecodable stream", err)
				e.Status = resp.StatusCode
				return "", e
			}
			capitan.Emit(ctx, StreamChunk,
				EndpointKey.Field(ep.Path),
				ChunkBytesKey.Field(n),
			)
			if text != "" {
				acc.WriteString(text)
				onPartial(acc.String())
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return "", transportErr(ctx, streamCtx, ep, resp.StatusCode, c.streamTimeout, readErr)
		}
	}

	tail, err := dec.Flush()
	if err != nil {
		e := attemptErr(KindBadResponse, ep, "undecodable stream", err)
		e.Status = resp.StatusCode
		return "", e
	}
	if tail != "" {
		acc.WriteString(tail)
		if streamCtx.Err() == nil {
			onPartial(acc.String())
		}
	}
	cancel()

	final := acc.String()
	if marker, ok := c.findMarker(final); ok {
		e := attemptErr(KindInBandError, ep, strings.TrimSpace(final), nil)
		e.Status = resp.StatusCode
		e.Marker = marker
		return "", e
	}

	trimmed := strings.TrimSpace(final)
	if trimmed == "" {
		e := attemptErr(KindEmptyResult, ep, "stream ended without text", nil)
		e.Status = resp.StatusCode
		return "", e
	}
	return trimmed, nil
}

// findMarker reports the first configured marker contained in text.
func (c *Client) findMarker(text string) (string, bool) {
	for _, m := range c.markers {
		if m != "" && strings.Contains(text, m) {
			return m, true
		}
	}
	return "", false
}

// transportErr classifies a failure that happened while talking to the endpoint.
// Only the attempt's own deadline counts as a timeout; a cancelled parent context
// is reported as a network failure wrapping the context error.
func transportErr(parent, attemptCtx context.Context, ep Endpoint, status int, limit time.Duration, err error) *AttemptError {
	var e *AttemptError
	if parent.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		e = attemptErr(KindTimeout, ep, fmt.Sprintf("no completion within %s", limit), attemptCtx.Err())
	} else {
		e = attemptErr(KindNetwork, ep, "", err)
	}
	e.Status = status
	return e
}
