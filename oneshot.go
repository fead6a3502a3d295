package polish

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// maxOneShotBody caps how much of a one-shot response is read.
const maxOneShotBody = 4 << 20

// RequestOnce posts req to a one-shot endpoint and extracts polished_text from the
// JSON response.
//
// It fails with KindBadResponse on a non-2xx status, KindMalformedResponse when the
// body is not a JSON object or polished_text is not a string, and KindEmptyResult
// when polished_text is missing, null or blank. The server's error field, when present, becomes the failure detail.
func (c *Client) RequestOnce(ctx context.Context, ep Endpoint, req Request) (string, error) {
	attemptCtx := ctx
	if c.oneShotTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.oneShotTimeout)
		defer cancel()
	}

	httpReq, err := c.newPost(attemptCtx, ep, req, "application/json")
	if err != nil {
		return "", attemptErr(KindNetwork, ep, "", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportErr(ctx, attemptCtx, ep, 0, c.oneShotTimeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOneShotBody))
	if err != nil {
		return "", transportErr(ctx, attemptCtx, ep, resp.StatusCode, c.oneShotTimeout, err)
	}

	if !isSuccess(resp.StatusCode) {
		detail := "HTTP " + strconv.Itoa(resp.StatusCode)
		if msg := serverError(body); msg != "" {
			detail += ": " + msg
		}
		e := attemptErr(KindBadResponse, ep, detail, nil)
		e.Status = resp.StatusCode
		return "", e
	}

	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		e := attemptErr(KindMalformedResponse, ep, "response is not a JSON object", nil)
		e.Status = resp.StatusCode
		return "", e
	}

	field := gjson.GetBytes(body, "polished_text")
	if field.Exists() && field.Type != gjson.Null && field.Type != gjson.String {
		e := attemptErr(KindMalformedResponse, ep, "polished_text is not a string", nil)
		e.Status = resp.StatusCode
		return "", e
	}
	text := strings.TrimSpace(field.String())
	if text == "" {
		detail := serverError(body)
		if detail == "" {
			detail = "EMPTY_RESPONSE"
		}
		e := attemptErr(KindEmptyResult, ep, detail, nil)
		e.Status = resp.StatusCode
		return "", e
	}
	return text, nil
}

// serverError extracts the error field of a JSON error payload, if any.
func serverError(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return strings.TrimSpace(gjson.GetBytes(body, "error").String())
}
