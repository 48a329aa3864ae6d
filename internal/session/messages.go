package session

// User-facing texts rendered through View.
const (
	MsgSelectImage      = "Please select an image or enter an image id."
	MsgImageNotFound    = "Image not found."
	MsgPredictionPrefix = "Prediction: "
	MsgPredictionFailed = "Prediction failed."
	MsgSelectArchive    = "Please select a ZIP file to upload."
	MsgUploadFailed     = "Upload failed."
	MsgTriggerRetrain   = `Click "Retrain" to start retraining with the new data.`
	MsgRetrainFailed    = "Retraining failed."
	MsgRetrainCompleted = "Retraining completed."
	MsgMonitoringFailed = "Monitoring failed."
	MsgJobActive        = "A retraining job is already being monitored."
)
