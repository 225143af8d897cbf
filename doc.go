/*
go-bytetrack implements multi-object tracking over per frame detections in
the ByteTrack style.  Each track carries a constant velocity Kalman filter
with velocity decay, association runs in two stages split by detection
confidence, and an optional appearance cue matches detections against a
bounded feature gallery kept per track.

The tracker is detector agnostic: feed it Objects from any source, once per
frame, and it returns the confirmed tracks in stable identity order.  The
affine subpackage provides the 2x3 raster geometry used for patch
resampling, and the preprocess and render subpackages bridge to GoCV for
video pipelines.

See example code and usage in the example subdirectory.
*/
package bytetrack
