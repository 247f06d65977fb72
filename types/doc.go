// Package types provides the value types shared by every tokenledger package:
// fixed-point token amounts with checked 256-bit arithmetic, account
// addresses, and record timestamps.
package types
