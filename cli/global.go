package main

// <constants>
const envCacheDir = `FDUPES_CACHE_DIR`

// </constants>

// <global-variables>
//   <subset purpose="passing values between cobra command handlers">
var w Output
var log Output

//   </subset>
// </global-variables>
