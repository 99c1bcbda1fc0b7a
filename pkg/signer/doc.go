// Package signer issues and verifies self-contained, time-limited tokens.
//
// A token carries an arbitrary JSON-serializable payload together with its
// issuance time and a keyed HMAC-SHA256 signature (an HS256 JWT). Nothing is
// stored on the server: a token is valid as long as the signature matches the
// secret and its age does not exceed the maximum age given to Verify.
//
// Every token embeds a random identifier, so two tokens issued for the same
// payload are never byte-identical.
//
// # Usage
//
//	s, err := signer.New(os.Getenv("SESSION_KEY"))
//	if err != nil {
//	    return err
//	}
//
//	token, err := s.Issue([]any{42, "5f1c..."})
//
//	var payload []any
//	if err := s.Verify(token, 15*time.Minute, &payload); err != nil {
//	    // errors.Is(err, signer.ErrInvalidToken) for any rejection,
//	    // signer.ErrExpired / signer.ErrBadSignature for the reason.
//	}
package signer
