/*
Package testutil provides test data generators for the RPC stack.

It covers the fixtures the package tests keep reaching for: key pairs, call
envelopes, signed request headers and identity records, each with
functional options so a test states only what it cares about.

# Cryptographic Generators

	// Generate random bytes
	randomBytes, _ := testutil.GenerateRandomBytes(32)

	// Generate key pairs
	pubKey, privKey, _ := testutil.GenerateTestKeyPair()

	// Generate a fresh hotkey address
	address := testutil.GenerateTestAddress()

# Envelope Generators

	// Create a default forward envelope
	env := testutil.NewTestEnvelope()

	// Create a customized envelope
	env := testutil.NewTestEnvelope(
	    testutil.WithName("text_to_embedding"),
	    testutil.WithSender(senderAddress),
	    testutil.WithTimeout(time.Second),
	)

# Request Signing

	// Attach valid auth headers to an outbound request
	err := testutil.SignRequest(req, privKey, receiverAddress,
	    testutil.WithNonce(7),
	)

# Identity Records

	// Create a routable record with a fresh hotkey
	node := testutil.NewTestNode()

	// Point the record at a test server
	node := testutil.NewTestNode(
	    testutil.WithNodeIP("127.0.0.1"),
	    testutil.WithNodeAPIPort(port),
	)
*/
package testutil
