package speech

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/minzhou/babydraw/pkg/errors"
)

const (
	defaultAliyunEndpoint = "https://nls-gateway.cn-shanghai.aliyuncs.com"
	aliyunTokenEndpoint   = "https://nls-meta.cn-shanghai.aliyuncs.com/"
	aliyunASRPath         = "/stream/v1/asr"

	aliyunStatusOK = 20000000
)

// AliyunRecognizer implements speech recognition over the Alibaba Cloud NLS
// short-sentence REST gateway. Access tokens are minted from the access-key
// pair via the metadata API and cached until shortly before expiry.
type AliyunRecognizer struct {
	cfg    AliyunConfig
	client *http.Client
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewAliyunRecognizer constructs the Alibaba Cloud recogniser.
func NewAliyunRecognizer(cfg AliyunConfig) *AliyunRecognizer {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaultAliyunEndpoint
	}
	return &AliyunRecognizer{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// Name identifies the provider in results and logs.
func (r *AliyunRecognizer) Name() string { return "aliyun" }

type aliyunASRResponse struct {
	TaskID  string `json:"task_id"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Recognize posts the raw audio to the ASR gateway and returns the recognised text.
func (r *AliyunRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	token, err := r.accessToken(ctx)
	if err != nil {
		return "", apperrors.NewProviderFailure(r.Name(), err)
	}

	endpoint := strings.TrimSuffix(r.cfg.Endpoint, "/") + aliyunASRPath
	query := url.Values{}
	query.Set("appkey", r.cfg.AppKey)
	query.Set("format", DetectFormat(audio))
	query.Set("sample_rate", "16000")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+query.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", apperrors.NewProviderFailure(r.Name(), err)
	}
	req.Header.Set("X-NLS-Token", token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", apperrors.NewProviderFailure(r.Name(), fmt.Errorf("asr request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperrors.NewProviderFailure(r.Name(), fmt.Errorf("read asr response: %w", err))
	}

	var result aliyunASRResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", apperrors.NewProviderFailure(r.Name(), fmt.Errorf("decode asr response: %w", err))
	}
	if result.Status != aliyunStatusOK {
		return "", apperrors.NewProviderFailure(r.Name(), fmt.Errorf("asr status %d: %s", result.Status, result.Message))
	}

	return result.Result, nil
}

type aliyunTokenResponse struct {
	Token struct {
		ID         string `json:"Id"`
		ExpireTime int64  `json:"ExpireTime"`
	} `json:"Token"`
	Message string `json:"Message"`
}

// accessToken returns a cached NLS token, minting a fresh one through the
// RPC-signed CreateToken call when the cached value is missing or stale.
func (r *AliyunRecognizer) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && r.now().Add(time.Minute).Before(r.tokenExpiry) {
		return r.token, nil
	}

	params := url.Values{}
	params.Set("AccessKeyId", r.cfg.AccessKeyID)
	params.Set("Action", "CreateToken")
	params.Set("Format", "JSON")
	params.Set("RegionId", "cn-shanghai")
	params.Set("SignatureMethod", "HMAC-SHA1")
	params.Set("SignatureNonce", uuid.NewString())
	params.Set("SignatureVersion", "1.0")
	params.Set("Timestamp", r.now().UTC().Format("2006-01-02T15:04:05Z"))
	params.Set("Version", "2019-02-28")
	params.Set("Signature", r.signRPC(params))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, aliyunTokenEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	var tokenResp aliyunTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.Token.ID == "" {
		return "", fmt.Errorf("create token rejected: %s", tokenResp.Message)
	}

	r.token = tokenResp.Token.ID
	r.tokenExpiry = time.Unix(tokenResp.Token.ExpireTime, 0)
	return r.token, nil
}

// signRPC computes the Alibaba Cloud RPC v1.0 signature over the canonicalised
// query string.
func (r *AliyunRecognizer) signRPC(params url.Values) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var canonical strings.Builder
	for i, key := range keys {
		if i > 0 {
			canonical.WriteByte('&')
		}
		canonical.WriteString(percentEncode(key))
		canonical.WriteByte('=')
		canonical.WriteString(percentEncode(params.Get(key)))
	}

	stringToSign := "GET&" + percentEncode("/") + "&" + percentEncode(canonical.String())
	mac := hmac.New(sha1.New, []byte(r.cfg.AccessKeySecret+"&"))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func percentEncode(s string) string {
	encoded := url.QueryEscape(s)
	encoded = strings.ReplaceAll(encoded, "+", "%20")
	encoded = strings.ReplaceAll(encoded, "*", "%2A")
	encoded = strings.ReplaceAll(encoded, "%7E", "~")
	return encoded
}
