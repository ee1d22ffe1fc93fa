// Package mrs reads and writes MRS archives, a seekable ZIP-family
// container with altered magic constants and a pluggable obfuscation layer.
//
// An Archive is built in memory (payloads live in a scratch store on disk),
// filled via AddFile, AddBytes, AddFolder or by merging another archive
// with AddArchive, and serialized with WriteTo or WriteFile. Entries are
// addressed by insertion index; Read returns an entry's original bytes.
//
// Headers are obfuscated on disk. The default transform is a reversible
// per-byte rotation and complement meant only to defeat casual inspection;
// callers wanting actual confidentiality replace it per record kind through
// the hook slots of SetDecryption and SetEncryption, and may accept their
// own magic constants with SetSignatureCheck.
//
// Duplicate display names are resolved per operation under one of three
// policies: KeepNew replaces in place, KeepOld rejects, KeepBoth renames
// the newcomer to "name (N).ext" with the first free N starting at 2.
package mrs
