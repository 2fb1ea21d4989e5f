package executor

import (
	"DaemonDB/types"
	"encoding/json"
	"fmt"
	"strings"
)

/*
This file contains the command related to creating a table. The vm
function parses the column/foreign-key payload the code generator
pushed, builds a types.TableSchema, and hands it to the storage engine.
Catalog registration, heap file and index file creation, and WAL
logging all happen inside StorageEngine.CreateTable.
*/

func (vm *VM) ExecuteCreateTable(tableName string) error {
	if err := vm.storageEngine.RequireDatabase(); err != nil {
		return fmt.Errorf("no database selected. Run: USE <dbname>")
	}

	schemaPayload, err := vm.pop()
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	var payload struct {
		Columns     string                `json:"columns"`
		ForeignKeys []types.ForeignKeyDef `json:"foreign_keys"`
	}
	if err := json.Unmarshal(schemaPayload, &payload); err != nil {
		return fmt.Errorf("invalid table schema payload: %w", err)
	}

	colParts := strings.Split(payload.Columns, ",")
	columnDefs := make([]types.ColumnDef, 0, len(colParts))

	for _, col := range colParts {
		colItr := strings.Split(col, ":")
		if len(colItr) < 2 {
			return fmt.Errorf("invalid column format: %s", col)
		}
		isPK := len(colItr) >= 3 && strings.EqualFold(colItr[2], "pk")
		columnDefs = append(columnDefs, types.ColumnDef{
			Name:         colItr[1],
			Type:         strings.ToUpper(colItr[0]),
			IsPrimaryKey: isPK,
		})
	}

	schema := types.TableSchema{
		TableName:   tableName,
		Columns:     columnDefs,
		ForeignKeys: payload.ForeignKeys,
	}

	if err := vm.storageEngine.CreateTable(schema); err != nil {
		return err
	}

	fmt.Printf("Table %s created successfully\n", tableName)
	return nil
}
