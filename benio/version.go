package benio

// Version is the toolkit release, overridable at build time with
// -ldflags "-X github.com/ljishen/Pyben-nio/benio.Version=...".
var Version = "0.6.0"
