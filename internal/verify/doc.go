// Package verify implements the pinpane code verification protocol.
//
// This package defines the JSON messages exchanged between pinpane clients
// and a pinpane-verifyd daemon, plus a WebSocket client for driving an
// exchange. Messages travel as single WebSocket text frames, one JSON
// object per frame.
//
// # Protocol Overview
//
// A verification exchange is a single request/response pair:
//
//	{"type":"verify_request","id":7,"user":"alice","code":"123456"}
//	{"type":"verify_response","id":7,"status":"denied","reason":"code mismatch","attempts_left":2}
//
// The id correlates a response with its request on a shared connection.
// Possible verdicts are "ok", "denied" and "locked"; locked means the
// connection has exhausted its attempt budget and further requests on it
// are pointless.
//
// The submitted code never appears in any response or log line.
//
// # Usage Example
//
//	client := verify.NewClient("verify.local", verify.DefaultPort)
//	defer client.Close()
//
//	resp, err := client.Verify(ctx, "alice", "123456")
//	if err != nil {
//	    var verr *verify.VerifyError
//	    if errors.As(err, &verr) && verr.Retryable {
//	        // transient network trouble, worth another attempt
//	    }
//	    return err
//	}
//	if resp.Status == verify.StatusOK {
//	    // code accepted
//	}
//
// # Error Handling
//
// Transport failures are wrapped in VerifyError with a classified kind
// (timeout, DNS, connection refused, ...) and a Retryable hint so callers
// can distinguish "try again" from "give up". Malformed frames surface as
// protocol errors.
package verify
