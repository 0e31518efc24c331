// Package tts synthesizes narration through the Edge TTS WebSocket service.
// The service is keyless: a speech.config frame, an SSML frame, then binary
// audio frames until turn.end.
package tts

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	serviceURL         = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	outputFormat       = "audio-24khz-48kbitrate-mono-mp3"

	readTimeout = 30 * time.Second
)

// Voices maps config aliases to Edge voice IDs. Anything not in the map is
// passed through as a raw voice ID.
var Voices = map[string]string{
	"ko-female": "ko-KR-SunHiNeural",
	"ko-male":   "ko-KR-InJoonNeural",
	"en-female": "en-US-JennyNeural",
	"en-male":   "en-US-GuyNeural",
}

func ResolveVoice(setting string) string {
	if v, ok := Voices[setting]; ok {
		return v
	}
	return setting
}

type Client struct {
	Voice string // full voice ID
	Rate  string // e.g. "+0%", "-10%"
	URL   string // overridden in tests
}

func NewClient(voice, rate string) *Client {
	return &Client{Voice: ResolveVoice(voice), Rate: rate}
}

// Synthesize speaks text into an MP3 at outPath. Failures here are usually
// transient network conditions; the caller decides about retries.
func (c *Client) Synthesize(ctx context.Context, text, outPath string) error {
	clean := CleanText(text)
	if clean == "" {
		// The service rejects empty SSML; an audible pause keeps the
		// slide narrated and the timeline math uniform.
		clean = "..."
	}

	endpoint := c.URL
	if endpoint == "" {
		endpoint = serviceURL
	}
	connID := strings.ReplaceAll(uuid.NewString(), "-", "")
	url := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", endpoint, trustedClientToken, connID)

	header := http.Header{}
	header.Set("Origin", "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold")
	header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("tts connect: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("tts connect: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, speechConfig()); err != nil {
		return fmt.Errorf("tts speech.config: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, ssmlMessage(clean, c.Voice, c.Rate)); err != nil {
		return fmt.Errorf("tts ssml: %w", err)
	}

	var audio []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("tts read: %w", err)
		}

		switch mt {
		case websocket.BinaryMessage:
			if len(data) < 2 {
				continue
			}
			headerLen := int(binary.BigEndian.Uint16(data[:2]))
			if len(data) < 2+headerLen {
				continue
			}
			if strings.Contains(string(data[2:2+headerLen]), "Path:audio") {
				audio = append(audio, data[2+headerLen:]...)
			}
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				if len(audio) == 0 {
					return fmt.Errorf("tts returned no audio for %q", clean)
				}
				return os.WriteFile(outPath, audio, 0o644)
			}
		}
	}
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05") + " GMT+0000 (Coordinated Universal Time)"
}

func speechConfig() []byte {
	return []byte("X-Timestamp: " + timestamp() + "\r\n" +
		"Content-Type: application/json; charset=utf-8\r\n" +
		"Path: speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` + outputFormat + `"}}}}`)
}

func ssmlMessage(text, voice, rate string) []byte {
	if rate == "" {
		rate = "+0%"
	}
	lang := "en-US"
	if parts := strings.SplitN(voice, "-", 3); len(parts) >= 2 {
		lang = parts[0] + "-" + parts[1]
	}
	ssml := fmt.Sprintf(
		"<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'>"+
			"<voice name='%s'><prosody pitch='+0Hz' rate='%s' volume='+0%%'>%s</prosody></voice></speak>",
		lang, voice, rate, escapeXML(text))

	return []byte("X-RequestId: " + strings.ReplaceAll(uuid.NewString(), "-", "") + "\r\n" +
		"Content-Type: application/ssml+xml\r\n" +
		"X-Timestamp: " + timestamp() + "Z\r\n" +
		"Path: ssml\r\n\r\n" +
		ssml)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
