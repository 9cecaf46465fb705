package inference

// Precision is the numeric precision an accelerator runs the model at.
type Precision string

// Precisions accepted by the OpenVINO provider.
const (
	PrecisionFP32     Precision = "FP32"
	PrecisionFP16     Precision = "FP16"
	PrecisionAccuracy Precision = "ACCURACY"
)
