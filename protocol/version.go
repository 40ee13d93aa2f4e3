package protocol

// Version is the semantic version of this implementation.
const Version = "5.1.0"

// VersionAsInt is the integer form sent in the version header, encoded as
// 100*major + 10*minor + patch.
const VersionAsInt = 510

// VersionFloor is the lowest peer version the verifier accepts. Requests
// below the floor are rejected before any signature parsing.
const VersionFloor = 510
