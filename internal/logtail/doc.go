// Package logtail reads the console's own log file for the settings view.
//
// # Reading
//
// Read returns the last N lines of a file in one pass using a ring buffer,
// so memory stays proportional to N rather than to the file size. A missing
// file is treated as empty; the log may not exist until the first write.
//
// ReadFrom supports follow mode. It returns the complete lines appended
// after a byte offset along with the offset to resume from:
//
//	lines, next, err := logtail.ReadFrom(path, offset)
//	offset = next
//
// Partial trailing lines are held back until their newline arrives. If the
// file is truncated or rotated to a size below the stored offset, reading
// restarts from the beginning.
//
// # Levels
//
// The log is written by log/slog's text handler, so every record carries a
// level=LEVEL attribute. ParseLevel extracts it; lines from other writers
// are recognised by a leading level word ("[WARN]", "ERROR:"). Filter keeps
// lines at or above a minimum level, attaching continuation lines to the
// record that precedes them.
//
// Colouring is left to the view layer, which maps Level to theme styles.
package logtail
