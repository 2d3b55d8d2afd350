// Package engines provides the speech synthesis backends: sherpa runs
// the bundled Kokoro ONNX model in process, piper shells out to the
// piper binary, and mock exists for tests.
package engines
