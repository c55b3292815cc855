// Package live implements the real-time full-duplex conversation engine.
//
// The engine captures a local audio stream, ships it to a remote
// speech-to-speech session, and plays the synthesized reply back with
// gap-free scheduling while a small turn state machine tracks who is
// speaking and triggers side-channel scoring of each user utterance.
//
// # Architecture
//
//   - Engine: the owning orchestrator wiring everything below
//   - Conn: websocket session lifecycle plus a pre-connect send queue
//   - Capture: fixed-size frame production and the amplitude estimate
//   - Scheduler: back-to-back playback driven by a single cursor
//   - Tracker: per-role transcript turns and turn-boundary detection
//   - Sidecar: fire-and-forget score evaluation off the audio path
//
// # Data Flow
//
//	Mic → Capture → pcm.Encode → Conn.Send
//	Conn events → Tracker (transcript deltas, control)
//	            → pcm.Decode → Scheduler.Enqueue (audio)
//	Tracker boundary → Sidecar → ScoreState
//
// # Usage
//
//	engine := live.NewEngine(apiKey, live.DefaultConfig(), mic, nil, speaker,
//	    live.WithEvaluator(coach),
//	    live.WithSummarizer(coach),
//	)
//	if err := engine.Start(ctx); err != nil {
//	    return err
//	}
//	for event := range engine.Events() {
//	    switch e := event.(type) {
//	    case *live.TranscriptDeltaEvent:
//	        fmt.Println(e.Role, e.Text)
//	    case *live.ScoreUpdatedEvent:
//	        fmt.Println("score:", e.Score)
//	    }
//	}
//	result := engine.End(ctx)
package live
