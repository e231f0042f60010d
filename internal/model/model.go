package model

import (
	"time"

	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/pkg/db"
	"github.com/thep200/github-file-crawler/pkg/log"
)

type Model struct {
	Config    *cfg.Config `gorm:"-" json:"-"`
	Logger    log.Logger  `gorm:"-" json:"-"`
	Mysql     *db.Mysql   `gorm:"-" json:"-"`
	ID        uint        `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
