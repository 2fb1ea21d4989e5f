// Helper logic for the executor is split into:
//   - type_conv.go: toInt, toString, toFloat, compareValues
//   - vm.go: the opcode dispatcher, Execute
//   - exec_insert.go, exec_select.go, exec_create_table.go, exec_update.go: one file per SQL command
//   - auto_transaction.go: implicit BEGIN/COMMIT/ABORT wrapping for statements run outside a transaction
//   - print.go: PrintLine, PrintSeparator, formatValue
//
// Row scanning, joins, indexing, WAL replay and table-to-file mapping all
// live in storage_engine now; the VM only calls into it.
package executor
