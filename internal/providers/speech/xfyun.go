package speech

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/minzhou/babydraw/pkg/errors"
)

const (
	defaultXFYunHost = "iat-api.xfyun.cn"
	xfyunIATPath     = "/v2/iat"

	// Frame status markers of the iat streaming protocol.
	xfyunFrameFirst = 0
	xfyunFrameCont  = 1
	xfyunFrameLast  = 2

	xfyunChunkSize    = 1280
	xfyunReadDeadline = 30 * time.Second
)

// XFYunRecognizer implements speech recognition over the iFLYTEK iat
// WebSocket API. Audio is streamed in raw frames and partial results are
// accumulated until the server reports the final segment.
type XFYunRecognizer struct {
	cfg    XFYunConfig
	dialer *websocket.Dialer
	now    func() time.Time
}

// NewXFYunRecognizer constructs the iFLYTEK recogniser.
func NewXFYunRecognizer(cfg XFYunConfig) *XFYunRecognizer {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = defaultXFYunHost
	}
	return &XFYunRecognizer{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		now:    time.Now,
	}
}

// Name identifies the provider in results and logs.
func (r *XFYunRecognizer) Name() string { return "xfyun" }

type xfyunFrame struct {
	Common   *xfyunCommon   `json:"common,omitempty"`
	Business *xfyunBusiness `json:"business,omitempty"`
	Data     xfyunData      `json:"data"`
}

type xfyunCommon struct {
	AppID string `json:"app_id"`
}

type xfyunBusiness struct {
	Language string `json:"language"`
	Domain   string `json:"domain"`
	Accent   string `json:"accent"`
	VADEOS   int    `json:"vad_eos"`
}

type xfyunData struct {
	Status   int    `json:"status"`
	Format   string `json:"format"`
	Encoding string `json:"encoding"`
	Audio    string `json:"audio"`
}

type xfyunResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
		Result struct {
			WS []struct {
				CW []struct {
					W string `json:"w"`
				} `json:"cw"`
			} `json:"ws"`
		} `json:"result"`
	} `json:"data"`
}

// Recognize streams the audio over the signed WebSocket and concatenates the
// recognised words until the server closes the result stream.
func (r *XFYunRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	conn, _, err := r.dialer.DialContext(ctx, r.signedURL(), nil)
	if err != nil {
		return "", apperrors.NewProviderFailure(r.Name(), fmt.Errorf("dial iat endpoint: %w", err))
	}
	defer conn.Close()

	if err := r.sendFrames(conn, audio); err != nil {
		return "", apperrors.NewProviderFailure(r.Name(), err)
	}

	var out strings.Builder
	for {
		_ = conn.SetReadDeadline(r.now().Add(xfyunReadDeadline))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return "", apperrors.NewProviderFailure(r.Name(), fmt.Errorf("read result frame: %w", err))
		}

		var resp xfyunResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return "", apperrors.NewProviderFailure(r.Name(), fmt.Errorf("decode result frame: %w", err))
		}
		if resp.Code != 0 {
			return "", apperrors.NewProviderFailure(r.Name(), fmt.Errorf("iat error %d: %s", resp.Code, resp.Message))
		}

		for _, ws := range resp.Data.Result.WS {
			for _, cw := range ws.CW {
				out.WriteString(cw.W)
			}
		}

		if resp.Data.Status == xfyunFrameLast {
			break
		}
	}

	return out.String(), nil
}

func (r *XFYunRecognizer) sendFrames(conn *websocket.Conn, audio []byte) error {
	status := xfyunFrameFirst
	for offset := 0; ; offset += xfyunChunkSize {
		end := offset + xfyunChunkSize
		last := end >= len(audio)
		if last {
			end = len(audio)
		}

		frame := xfyunFrame{
			Data: xfyunData{
				Status:   status,
				Format:   "audio/L16;rate=16000",
				Encoding: "raw",
				Audio:    base64.StdEncoding.EncodeToString(audio[offset:end]),
			},
		}
		if status == xfyunFrameFirst {
			frame.Common = &xfyunCommon{AppID: r.cfg.AppID}
			frame.Business = &xfyunBusiness{
				Language: "zh_cn",
				Domain:   "iat",
				Accent:   "mandarin",
				VADEOS:   3000,
			}
			status = xfyunFrameCont
		}
		if last {
			frame.Data.Status = xfyunFrameLast
		}

		if err := conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("send audio frame: %w", err)
		}
		if last {
			return nil
		}
	}
}

// signedURL builds the HMAC-SHA256 authenticated wss URL the iat gateway
// requires: the RFC1123 date and request line are signed with the API secret
// and supplied as query parameters.
func (r *XFYunRecognizer) signedURL() string {
	date := r.now().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")

	origin := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", r.cfg.Host, date, xfyunIATPath)
	mac := hmac.New(sha256.New, []byte(r.cfg.APISecret))
	mac.Write([]byte(origin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authOrigin := fmt.Sprintf(
		`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		r.cfg.APIKey, signature,
	)
	authorization := base64.StdEncoding.EncodeToString([]byte(authOrigin))

	query := url.Values{}
	query.Set("authorization", authorization)
	query.Set("date", date)
	query.Set("host", r.cfg.Host)

	return fmt.Sprintf("wss://%s%s?%s", r.cfg.Host, xfyunIATPath, query.Encode())
}
