// Package logging configures log/slog for warden.
//
// New builds a JSON or text handler and wraps it so that every record:
//   - carries the request, subject, corridor and proposal fields stored in
//     the context (see WithRequestID, WithSubject, WithCorridor,
//     WithProposalID)
//   - has subject references pseudonymized and credentials, tokens and
//     passwords masked when redaction is enabled
//
// Components keep logging through slog.Default().With("component", ...);
// Setup installs the configured handler as the default.
//
//	logger, err := logging.Setup(logging.Config{Level: "info", Format: "json", RedactSubjects: true})
//	if err != nil {
//		return err
//	}
//	logger.InfoContext(logging.WithSubject(ctx, "subject-17"), "proposal evaluated")
package logging
