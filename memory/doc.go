// Package memory holds the in-process record of one conversation.
//
// Model:
//   - A Transcript is one fixed system Entry followed by an ordered history of
//     user and assistant entries.
//   - History only shrinks from the front (oldest first), except for PopLast,
//     which undoes the most recent append when a turn fails.
//   - Nothing here is persisted; a Transcript lives as long as its session.
package memory
