// Package metadata implements the driven.MetadataCodec port over real
// file formats.
//
// Supported targets:
//
//   - JPEG images: EXIF (APP1/TIFF), XMP (APP1 packet) and IPTC
//     (APP13/Photoshop 8BIM) segments, read and rewritten in place.
//     All unrelated segments and tags are preserved byte-for-byte.
//   - XMP sidecar files: a bare XMP packet; EXIF and IPTC read as empty
//     and cannot be written.
//
// A handle buffers all namespace merges in memory and commits them in
// one atomic temp-file-and-rename on Close.
package metadata
