package metadata

import "strings"

// SystemModule is the name of the built-in framework module. It is always
// available to a Reader and never read from disk.
const SystemModule = "System"

// systemTypes lists the framework types every integration module may reference
var systemTypes = []struct {
	namespace string
	name      string
	flags     TypeFlags
	generics  []string
}{
	{"System", "Boolean", TypeValueType, nil},
	{"System", "Byte", TypeValueType, nil},
	{"System", "Char", TypeValueType, nil},
	{"System", "DateTime", TypeValueType, nil},
	{"System", "DateTimeOffset", TypeValueType, nil},
	{"System", "Decimal", TypeValueType, nil},
	{"System", "Double", TypeValueType, nil},
	{"System", "Guid", TypeValueType, nil},
	{"System", "IDisposable", TypeInterface, nil},
	{"System", "IServiceProvider", TypeInterface, nil},
	{"System", "Int16", TypeValueType, nil},
	{"System", "Int32", TypeValueType, nil},
	{"System", "Int64", TypeValueType, nil},
	{"System", "Nullable`1", TypeValueType, []string{"T"}},
	{"System", "Object", 0, nil},
	{"System", "SByte", TypeValueType, nil},
	{"System", "Single", TypeValueType, nil},
	{"System", "String", TypeSealed, nil},
	{"System", "TimeSpan", TypeValueType, nil},
	{"System", "UInt16", TypeValueType, nil},
	{"System", "UInt32", TypeValueType, nil},
	{"System", "UInt64", TypeValueType, nil},
	{"System", "Uri", 0, nil},
	{"System", "Void", TypeValueType, nil},
	{"System", "Action", TypeDelegate, nil},
	{"System", "Action`1", TypeDelegate, []string{"T"}},
	{"System", "Action`2", TypeDelegate, []string{"T1", "T2"}},
	{"System", "Func`1", TypeDelegate, []string{"TResult"}},
	{"System", "Func`2", TypeDelegate, []string{"T", "TResult"}},
	{"System.Threading", "CancellationToken", TypeValueType, nil},
	{"System.Threading.Tasks", "Task", 0, nil},
	{"System.Threading.Tasks", "Task`1", 0, []string{"TResult"}},
	{"System.Collections.Generic", "ICollection`1", TypeInterface, []string{"T"}},
	{"System.Collections.Generic", "IDictionary`2", TypeInterface, []string{"TKey", "TValue"}},
	{"System.Collections.Generic", "IEnumerable`1", TypeInterface, []string{"T"}},
	{"System.Collections.Generic", "IList`1", TypeInterface, []string{"T"}},
	{"System.Collections.Generic", "IReadOnlyDictionary`2", TypeInterface, []string{"TKey", "TValue"}},
	{"System.Collections.Generic", "IReadOnlyList`1", TypeInterface, []string{"T"}},
	{"System.Collections.Generic", "Dictionary`2", 0, []string{"TKey", "TValue"}},
	{"System.Collections.Generic", "List`1", 0, []string{"T"}},
}

// systemModuleDef builds the definition of the built-in module
func systemModuleDef() *ModuleDef {
	m := &ModuleDef{Name: SystemModule, Version: "1.0.0"}
	for _, st := range systemTypes {
		m.Types = append(m.Types, &TypeDef{
			Namespace:     st.namespace,
			Name:          st.name,
			Flags:         st.flags | TypePublic,
			GenericParams: st.generics,
		})
	}
	return m
}

// IsSystemName reports whether a full type name lives in the built-in module's
// namespaces. Unqualified references to such names resolve to SystemModule.
func IsSystemName(fullName string) bool {
	return fullName == "System" || strings.HasPrefix(fullName, "System.")
}
