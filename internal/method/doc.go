// Package method instruments functions.
//
// Every wrapper is an Interceptor: Wrap(name, next) returns a Func with the
// same shape as next. Wrappers record one tune at each point their When
// qualifier names: BEFORE, AFTER, or both for AROUND. Defaults:
//
//	Params      BEFORE     {function: {name, qualname, module, args, kwargs}}
//	Return      AFTER      {function: {name, qualname, module, mock, rval}}
//	Exception   EXCEPTION  {function: {...}, class, message, traceback}
//	Repository  BEFORE     {function: {...}, repositories: [...]}
//
// Stacked interceptors nest like ordinary calls. Chain(name, fn, a, b)
// is a.Wrap(name, b.Wrap(name, fn)): a captures first on the way in and
// last on the way out.
//
// Outside record and validate mode every wrapper calls straight through.
package method
