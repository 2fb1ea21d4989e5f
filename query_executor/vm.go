package executor

import (
	storageengine "DaemonDB/storage_engine"
	"fmt"
)

/*
VM is the byte-code dispatcher that sits above the storage engine. Its
instruction set is unchanged from the original design: PUSH instructions
move operands onto a byte-slice stack, and each SQL-command opcode pops
what it needs off that stack and forwards to the storage engine.

The VM itself never touches a heap file, index, or WAL record directly.
Every opcode handler is a thin adapter: unmarshal the payload the code
generator pushed, call the matching StorageEngine method, print the
result. All of the actual work (locking, logging, undo, recovery) lives
in the storage engine.
*/

func NewVM(se *storageengine.StorageEngine) *VM {
	return &VM{storageEngine: se}
}

func (vm *VM) pop() ([]byte, error) {
	if len(vm.stack) == 0 {
		return nil, fmt.Errorf("stack underflow")
	}
	val := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return val, nil
}

func (vm *VM) Execute(instructions []Instruction) error {
	vm.stack = nil

	for _, instr := range instructions {
		switch instr.Op {
		case OP_PUSH_VAL, OP_PUSH_KEY:
			vm.stack = append(vm.stack, []byte(instr.Value))

		case OP_CREATE_DB:
			return vm.storageEngine.CreateDatabase(instr.Value)

		case OP_SHOW_DB:
			databases, err := vm.storageEngine.ExecuteShowDatabases()
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				return nil
			}
			fmt.Println("Databases:")
			for _, db := range databases {
				fmt.Printf("  - %s\n", db)
			}
			return nil

		case OP_USE_DB:
			return vm.storageEngine.UseDatabase(instr.Value)

		case OP_CREATE_TABLE:
			return vm.ExecuteCreateTable(instr.Value)

		case OP_INSERT:
			return vm.ExecuteInsert(instr.Value)

		case OP_SELECT:
			payload, err := vm.pop()
			if err != nil {
				return fmt.Errorf("select: %w", err)
			}
			return vm.ExecuteSelect(string(payload))

		case OP_UPDATE:
			return vm.ExecuteUpdate(instr.Value)

		case OP_TXN_BEGIN:
			t, err := vm.storageEngine.BeginTransaction()
			if err != nil {
				return fmt.Errorf("begin: %w", err)
			}
			vm.currentTxn = t
			vm.autoTxn = false
			return nil

		case OP_TXN_COMMIT:
			if vm.currentTxn == nil {
				return fmt.Errorf("no active transaction")
			}
			txnID := vm.currentTxn.ID
			vm.currentTxn = nil
			return vm.storageEngine.CommitTransaction(txnID)

		case OP_TXN_ROLLBACK:
			if vm.currentTxn == nil {
				return fmt.Errorf("no active transaction")
			}
			t := vm.currentTxn
			vm.currentTxn = nil
			return vm.storageEngine.AbortTransaction(t)

		case OP_END:
			return nil

		default:
			return fmt.Errorf("unknown opcode: %d", instr.Op)
		}
	}
	return nil
}
