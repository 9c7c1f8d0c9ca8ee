// Package fileutil holds the small filesystem helpers shared by staging, the
// conversion executor, and the pipeline: streaming copies, atomic placement
// of finished outputs, and folding of free-form labels into safe file names.
package fileutil
