package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimePNG = "image/png"
)

// 错误码
const (
	CodeModuleLocked      = "module_locked"
	CodeCourseIncomplete  = "course_incomplete"
	CodeCertificateExists = "certificate_exists"
)
