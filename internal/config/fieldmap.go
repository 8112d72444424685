package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// UIDFields names the fields of the uid master app.
type UIDFields struct {
	UID       string `yaml:"uid"`
	CompanyID string `yaml:"company_id"`
}

// InboundFields names the fields of the inbound records app.
type InboundFields struct {
	CompanyID     string `yaml:"company_id"`
	RecordNumber  string `yaml:"record_number"`
	BaseDate      string `yaml:"base_date"`
	ItemTable     string `yaml:"item_table"`
	ItemName      string `yaml:"item_name"`
	Qty           string `yaml:"qty"`
	DesignLot     string `yaml:"design_lot"`
	UnitPriceFlag string `yaml:"unit_price_flag"`
	CreatedAt     string `yaml:"created_at"`
	PlannedDate   string `yaml:"planned_date"`
	SlipNo        string `yaml:"slip_no"`
	Status        string `yaml:"status"`
	QtySum        string `yaml:"qty_sum"`
	Cancel        string `yaml:"cancel"`
	CancelValue   string `yaml:"cancel_value"`
	CompanyName   string `yaml:"company_name"`
}

// FieldMap holds the deployment-specific field codes.
type FieldMap struct {
	UIDMaster UIDFields     `yaml:"uid_master"`
	Inbound   InboundFields `yaml:"inbound"`
}

// DefaultFieldMap returns the field codes used when no map file is configured.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		UIDMaster: UIDFields{
			UID:       "uId",
			CompanyID: "companyId",
		},
		Inbound: InboundFields{
			CompanyID:     "companyId",
			RecordNumber:  "レコード番号",
			BaseDate:      "baseDate",
			ItemTable:     "itemTable",
			ItemName:      "itemName",
			Qty:           "qty",
			DesignLot:     "designLot",
			UnitPriceFlag: "unitPriceFlag",
			CreatedAt:     "作成日時",
			PlannedDate:   "入荷予定日",
			SlipNo:        "伝票番号",
			Status:        "ステータス",
			QtySum:        "数量合計",
			Cancel:        "取消",
			CancelValue:   "0",
			CompanyName:   "companyName",
		},
	}
}

// LoadFieldMap decodes the YAML file at path over the defaults. An empty path
// returns the defaults. Unknown keys and blank values are rejected.
func LoadFieldMap(path string) (FieldMap, error) {
	fm := DefaultFieldMap()
	if strings.TrimSpace(path) == "" {
		return fm, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return FieldMap{}, fmt.Errorf("open field map: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fm); err != nil && !errors.Is(err, io.EOF) {
		return FieldMap{}, fmt.Errorf("parse field map %s: %w", path, err)
	}
	if err := fm.Validate(); err != nil {
		return FieldMap{}, fmt.Errorf("field map %s: %w", path, err)
	}
	return fm, nil
}

// Validate rejects blank field codes.
func (fm FieldMap) Validate() error {
	var blank []string
	collectBlank("uid_master", reflect.ValueOf(fm.UIDMaster), &blank)
	collectBlank("inbound", reflect.ValueOf(fm.Inbound), &blank)
	if len(blank) > 0 {
		return fmt.Errorf("blank field codes: %s", strings.Join(blank, ", "))
	}
	return nil
}

func collectBlank(prefix string, v reflect.Value, out *[]string) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.TrimSpace(v.Field(i).String()) == "" {
			*out = append(*out, prefix+"."+t.Field(i).Tag.Get("yaml"))
		}
	}
}
