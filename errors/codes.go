package errors

type Code string

const (
	ErrAborted           Code = "aborted"
	ErrBadRequest        Code = "bad-request"
	ErrCommunication     Code = "communication"
	ErrProtocolViolation Code = "protocol-violation"
	ErrFatal             Code = "fatal"
	ErrNotFound          Code = "not-found"
	ErrInternal          Code = "internal"
	ErrUnexpected        Code = "unexpected"
)

type Kind string

const (
	// KindAutoplayRejected is used when a kiosk rejects or does not confirm video
	// playback.
	KindAutoplayRejected Kind = "autoplay-rejected"
	// KindContextAborted is used when we were currently performing an operation but
	// the context got aborted.
	KindContextAborted Kind = "context-aborted"
	// KindDB is used for general database errors.
	KindDB Kind = "db"
	// KindDBQuery is used when executing a query fails.
	KindDBQuery Kind = "db-query"
	// KindDecodeJSON is used when an incoming message cannot be decoded.
	KindDecodeJSON Kind = "decode-json"
	// KindDuplicateNationalID is used when a player is created with a national id
	// that is already taken.
	KindDuplicateNationalID Kind = "duplicate-national-id"
	KindEncodeJSON          Kind = "encode-json"
	// KindIncompleteRegistration is used when a registration is requested
	// although name, cedula or phone is missing or was flagged as invalid.
	KindIncompleteRegistration Kind = "incomplete-registration"
	// KindInsufficientAssets is used when an event does not provide enough images
	// for building a deck.
	KindInsufficientAssets Kind = "insufficient-assets"
	// KindInvalidCedula is used when a national id fails format or checksum
	// validation.
	KindInvalidCedula Kind = "invalid-cedula"
	// KindInvalidConfig is used for invalid configuration values.
	KindInvalidConfig Kind = "invalid-config"
	// KindInvalidPhone is used when a phone number does not match the expected
	// format.
	KindInvalidPhone Kind = "invalid-phone"
	// KindLookupFailure is used when looking up a player in the store fails.
	KindLookupFailure Kind = "lookup-failure"
	// KindNoEventSelected is used for kiosk operations that require a selected
	// event.
	KindNoEventSelected Kind = "no-event-selected"
	// KindNotRegistered is used when a game is requested to start without a
	// registered player.
	KindNotRegistered Kind = "not-registered"
	// KindPersistenceFailure is used when creating a player in the store fails.
	KindPersistenceFailure Kind = "persistence-failure"
	// KindResourceNotFound is used when a requested entity does not exist.
	KindResourceNotFound Kind = "resource-not-found"
	// KindScoreSubmissionFailure is used when submitting a score to the store
	// fails.
	KindScoreSubmissionFailure Kind = "score-submission-failure"
	// KindSessionNotStarted is used for operations on a game session that has not
	// been started yet.
	KindSessionNotStarted Kind = "session-not-started"
	// KindUnknownCard is used when a card is clicked that is not part of the deck.
	KindUnknownCard Kind = "unknown-card"
	// KindUnknownMessageType is used for kiosk messages with unknown type.
	KindUnknownMessageType Kind = "unknown-message-type"
	KindUnexpected         Kind = "unexpected"
	// KindUnknown is used for different unknown type values that are too special
	// for creating separate error kinds.
	KindUnknown Kind = "unknown"
)
