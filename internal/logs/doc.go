// Package logs reads the autoposter log file for the `logs` command.
//
// Last returns the final lines of the file with bounded memory, Since reads
// whatever was appended after an offset, and Follow polls Since until the
// context ends. A file that shrinks below the saved offset is treated as
// rotated and read again from the start.
package logs
