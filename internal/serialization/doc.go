// Package serialization saves and loads network weights.
//
// A weight file is a fixed header followed by a protobuf-encoded payload:
//
//	[4 bytes: Magic "LNET"]
//	[4 bytes: Version (uint32 LE)]
//	[32 bytes: SHA-256 of the payload]
//	[payload: Checkpoint message]
//
// The payload messages, in protobuf notation:
//
//	message Checkpoint {
//	  uint32 epoch        = 1;
//	  string trainer      = 2;
//	  int64  created_unix = 3;
//	  repeated LayerWeights layers = 4;
//	}
//	message LayerWeights {
//	  uint32 index            = 1;
//	  string kind             = 2;
//	  repeated float weights  = 3 [packed = true];
//	  repeated float bias     = 4 [packed = true];
//	}
//
// Only weight-bearing layers are stored. Loading checks every entry against
// the target network's layer index, kind and buffer sizes before any weight
// is overwritten.
//
// Example usage:
//
//	if err := serialization.SaveFile("mnist.lnet", network, epoch); err != nil {
//	    log.Fatal(err)
//	}
//
//	cp, err := serialization.LoadFile("mnist.lnet", network)
//	if err != nil {
//	    log.Fatal(err)
//	}
package serialization
