// Package services implements the collaborator clients for the
// subtitle-manager backend.
//
// [APIService] wraps the REST surface the sync layer needs: single-job
// fetch-by-id, job listing and deletion, health, and a raw GET passthrough
// for debugging. Authentication is a static API key sent as the X-API-KEY
// header on every request.
//
// [PushSocket] implements [socket.Transport] over a websocket. It owns
// dialing and reconnect backoff, and folds connection lifecycle into the
// event stream as the synthetic "connect", "connect_error" and
// "disconnect" events, so the listener sees one ordered stream.
//
// Services use typed errors from the shared package:
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrJobNotFound] : job id not present server-side
//   - [shared.ErrMissingAPIKey] : no API key configured
package services
