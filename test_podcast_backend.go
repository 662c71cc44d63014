package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/aymenfurter/ai-podcast-generator/internal/audio"
)

// Simulated podcast backend for local testing. Serves the two endpoints
// the player calls, with canned dialogue and sine-wave audio.

const maxTurns = 7

var (
	listenAddr = flag.String("listen", ":8000", "Listen address")
	latency    = flag.Duration("latency", 0, "Artificial delay per turn, for prefetch-lag testing")
	sampleRate = flag.Int("sample-rate", 24000, "PCM sample rate of generated audio")
)

type ScriptRequest struct {
	Topic string `json:"topic"`
}

type ScriptResponse struct {
	PodcastScript string `json:"podcast_script"`
}

type TurnRequest struct {
	PodcastScript      string `json:"podcast_script"`
	CombinedTranscript string `json:"combined_transcript"`
	Turn               int    `json:"turn"`
	AudienceQuestion   string `json:"audience_question,omitempty"`
}

type TurnResponse struct {
	Transcript string `json:"transcript"`
	Speaker    string `json:"speaker"`
	Audio      []byte `json:"audio_base64"`
}

func scriptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	log.Printf("📝 SCRIPT REQUEST: topic=%q", req.Topic)

	script := fmt.Sprintf(`## Podcast Outline: %s

1. Introduction and why the topic matters
2. Key developments and current state
3. Open challenges and debates
4. Closing thoughts and outlook

Host: Dan. Guest: Anna. Seven turns, alternating speakers, Dan opens and closes.`, req.Topic)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ScriptResponse{PodcastScript: script})
}

func nextTurnHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Turn >= maxTurns {
		http.Error(w, "Turn ceiling reached", http.StatusBadRequest)
		return
	}

	log.Printf("🎙️  TURN REQUEST: turn=%d transcript_len=%d question=%q",
		req.Turn, len(req.CombinedTranscript), req.AudienceQuestion)

	if *latency > 0 {
		time.Sleep(*latency)
	}

	// Dan hosts the even turns, Anna takes the odd ones
	speaker := "Dan"
	frequency := 220.0
	if req.Turn%2 == 1 {
		speaker = "Anna"
		frequency = 330.0
	}

	var line string
	switch {
	case req.AudienceQuestion != "":
		line = fmt.Sprintf("Oh I see we have a question from the audience. They ask: %s. That is a great question.",
			req.AudienceQuestion)
	case req.Turn == 0:
		line = "Welcome to the show! Today we have a fascinating topic to dig into."
	case req.Turn == maxTurns-1:
		line = "That brings us to the end of today's episode. Thanks for listening, and see you next time!"
	default:
		line = fmt.Sprintf("That is an interesting point. Let me build on it with thought number %d.", req.Turn)
	}

	pcm := audio.SineWave(frequency, 1.5, *sampleRate)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TurnResponse{
		Transcript: fmt.Sprintf("%s: %s", speaker, line),
		Speaker:    speaker,
		Audio:      pcm,
	})
}

func main() {
	flag.Parse()

	http.HandleFunc("/generate_podcast_script", scriptHandler)
	http.HandleFunc("/next_turn", nextTurnHandler)

	log.Printf("🚀 Simulated podcast backend listening on %s (latency=%v)", *listenAddr, *latency)
	log.Fatal(http.ListenAndServe(*listenAddr, nil))
}
