package cfg

// Loader trả về cấu hình đã nạp. ViperLoader đọc file yaml và biến môi trường,
// MockLoader trả về giá trị mặc định dùng cho test.
type Loader interface {
	Load() (*Config, error)
}

var (
	_ Loader = (*ViperLoader)(nil)
	_ Loader = (*MockLoader)(nil)
)
