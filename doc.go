// Package interactive is the Go client SDK for the StreamSpace interactive
// broadcast service.
//
// A game process creates a Client, initializes it, and pumps it once per
// frame:
//
//	client := interactive.New(interactive.Config{
//		AppID:            "my-app",
//		ProjectVersionID: "12345",
//	})
//	if err := client.Initialize(); err != nil {
//		log.Fatal().Err(err).Msg("bad interactive config")
//	}
//	for running {
//		client.DoWork()
//		if client.GetButtonDown("jump", playerID) {
//			// ...
//		}
//	}
//	client.Dispose()
//
// The client authenticates the broadcaster with a short-code OAuth flow
// (surface Client.ShortCode to the user when the state reaches
// InteractivityShortCodeRequired), keeps a websocket session to the
// service with automatic reconnection, mirrors the server's scenes,
// groups, controls, and participants, and aggregates viewer input into
// per-frame edge queries.
//
// All getters, setters, and event delegates run on the goroutine that
// calls DoWork; the client is not safe for concurrent use from multiple
// goroutines.
package interactive
