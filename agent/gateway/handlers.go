package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
	voicex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/voice"
	twiliox "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/twilio"
)

const unavailableMessage = "We are unable to continue this call. Goodbye."

func (s *Server) handleStartCall(w http.ResponseWriter, r *http.Request) {
	agentID := strings.TrimSpace(r.URL.Query().Get("agent_type"))
	if agentID == "" {
		agentID = s.cfg.DefaultAgent
	}
	phoneNumber := strings.TrimSpace(r.URL.Query().Get("phone_number"))
	if phoneNumber == "" {
		phoneNumber = s.cfg.DefaultPhoneNumber
	}

	if _, err := s.catalog.DefinitionFor(agentID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "unknown agent_type " + agentID,
			"agents":  s.catalog.AgentIDs(),
		})
		return
	}
	if phoneNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "phone_number is required",
		})
		return
	}
	if s.dialer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"error":   "outbound calling is not configured",
		})
		return
	}

	webhook := s.cfg.WebhookBaseURL + "/voice?agent_type=" + url.QueryEscape(agentID)
	call, err := s.dialer.StartCall(r.Context(), phoneNumber, webhook)
	if err != nil {
		log.Error().Err(err).Str("agent_id", agentID).Msg("cannot place outbound call")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"call_sid":     call.SID,
		"agent_type":   agentID,
		"phone_number": phoneNumber,
	})
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeHangup(w, "")
		return
	}
	callSID := strings.TrimSpace(r.PostFormValue("CallSid"))
	agentID := strings.TrimSpace(r.URL.Query().Get("agent_type"))
	if agentID == "" {
		agentID = s.cfg.DefaultAgent
	}

	prompt, err := s.orch.HandleCallStart(r.Context(), callSID, agentID)
	if err != nil {
		log.Error().Err(err).Str("call_sid", callSID).Str("agent_id", agentID).Msg("call start failed")
		s.writeHangup(w, "")
		return
	}

	s.writeTwiML(w, agentID, prompt)
}

func (s *Server) handleProcessResponse(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeHangup(w, "")
		return
	}
	callSID := strings.TrimSpace(r.PostFormValue("CallSid"))
	transcript := r.PostFormValue("SpeechResult")
	agentID := strings.TrimSpace(r.URL.Query().Get("agent_type"))
	if agentID == "" {
		agentID = s.cfg.DefaultAgent
	}

	prompt, err := s.orch.HandleEvent(r.Context(), callSID, agentID, transcript)
	if err != nil {
		log.Error().Err(err).Str("call_sid", callSID).Str("agent_id", agentID).Msg("event handling failed")
		s.writeHangup(w, "")
		return
	}

	s.writeTwiML(w, agentID, prompt)
}

func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	callSID := r.PathValue("sid")
	sess, err := s.store.Load(r.Context(), callSID)
	if err != nil {
		if errors.Is(err, statex.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "call not found"})
			return
		}
		log.Error().Err(err).Str("call_sid", callSID).Msg("cannot load session for status")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "cannot load session"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"call_sid": callSID,
		"session":  sess,
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.audio == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "audio storage is not configured"})
		return
	}

	path, err := s.audio.Path(r.PathValue("file"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid audio file name"})
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "audio file not found"})
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "multi-agent voice dialogue",
		"agents":  s.catalog.AgentIDs(),
		"endpoints": map[string]string{
			"start_call":  "POST /start-call?agent_type=PIZZA&phone_number=+91xxx",
			"call_status": "GET /call-status/{call_sid}",
			"audio":       "GET /audio/{filename}",
		},
	})
}

// writeTwiML renders the voice prompt as a Gather when the dialogue expects
// more speech, or as a final message plus hangup when the call is over.
func (s *Server) writeTwiML(w http.ResponseWriter, agentID string, prompt contractx.VoicePrompt) {
	profile := voicex.ProfileFor(prompt.Language)
	say := &twiliox.Say{
		Voice:    profile.TwilioVoice,
		Language: profile.TwilioCode,
		Text:     prompt.Message,
	}

	var resp *twiliox.Response
	if prompt.ExpectSpeech {
		action := "/process-response?agent_type=" + url.QueryEscape(agentID)
		resp = twiliox.GatherSpeech(action, profile.TwilioCode, prompt.AudioURL, say)
	} else {
		resp = twiliox.Farewell(prompt.AudioURL, say)
	}

	body, err := resp.Render()
	if err != nil {
		log.Error().Err(err).Msg("cannot render twiml")
		s.writeHangup(w, "")
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeHangup emits a terminal TwiML response so the provider ends the call
// cleanly instead of retrying the webhook.
func (s *Server) writeHangup(w http.ResponseWriter, message string) {
	if message == "" {
		message = unavailableMessage
	}
	resp := twiliox.Farewell("", &twiliox.Say{Text: message})
	body, err := resp.Render()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("cannot encode json response")
	}
}
