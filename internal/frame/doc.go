// Package frame holds the raw sensor frame handle and the pure buffer transforms
// applied to it before display.
//
// The transforms form a short chain:
//
//	RawFrame --Decode--> PixelBuffer --Rotate--> PixelBuffer --Invert--> PixelBuffer
//
// Decode copies out of source-owned memory and corrects row-stride padding.
// Rotate and Invert never modify their input and always return a new buffer,
// except Rotate by 0 which returns the input unchanged.
package frame
