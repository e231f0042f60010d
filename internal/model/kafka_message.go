package model

// FileMessage là cấu trúc dữ liệu FileRecord gửi tới Kafka
type FileMessage struct {
	Mode   string     `json:"mode"`
	Chunk  int        `json:"chunk"`
	Record FileRecord `json:"record"`
}
