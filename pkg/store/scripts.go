package store

import "github.com/redis/go-redis/v9"

// Each script mutates the area hash and publishes the change batch in one
// atomic step, so subscribers see batches in the order the writes landed and
// every oldValue is the newValue of the batch before it.
//
// KEYS[1] is the area hash and KEYS[2] its changes channel. ARGV[1] is the
// area tag. Values are stored JSON and are spliced into the payload as is.

// setScript takes key/value pairs from ARGV[2] on.
var setScript = redis.NewScript(`
local changes = {}
for i = 2, #ARGV, 2 do
	local k, v = ARGV[i], ARGV[i + 1]
	local old = redis.call('HGET', KEYS[1], k)
	redis.call('HSET', KEYS[1], k, v)
	local c = '{"key":' .. cjson.encode(k)
	if old then
		c = c .. ',"oldValue":' .. old
	end
	changes[#changes + 1] = c .. ',"newValue":' .. v .. '}'
end
redis.call('PUBLISH', KEYS[2], '{"area":' .. cjson.encode(ARGV[1]) .. ',"changes":[' .. table.concat(changes, ',') .. ']}')
return #changes
`)

// removeScript takes keys from ARGV[2] on. Absent keys are not reported and
// nothing is published when none were present.
var removeScript = redis.NewScript(`
local changes = {}
for i = 2, #ARGV do
	local k = ARGV[i]
	local old = redis.call('HGET', KEYS[1], k)
	if old then
		redis.call('HDEL', KEYS[1], k)
		changes[#changes + 1] = '{"key":' .. cjson.encode(k) .. ',"oldValue":' .. old .. '}'
	end
end
if #changes > 0 then
	redis.call('PUBLISH', KEYS[2], '{"area":' .. cjson.encode(ARGV[1]) .. ',"changes":[' .. table.concat(changes, ',') .. ']}')
end
return #changes
`)

// clearScript deletes the whole hash and reports every key, sorted.
var clearScript = redis.NewScript(`
local flat = redis.call('HGETALL', KEYS[1])
if #flat == 0 then
	return 0
end
local keys, old = {}, {}
for i = 1, #flat, 2 do
	keys[#keys + 1] = flat[i]
	old[flat[i]] = flat[i + 1]
end
table.sort(keys)
redis.call('DEL', KEYS[1])
local changes = {}
for _, k in ipairs(keys) do
	changes[#changes + 1] = '{"key":' .. cjson.encode(k) .. ',"oldValue":' .. old[k] .. '}'
end
redis.call('PUBLISH', KEYS[2], '{"area":' .. cjson.encode(ARGV[1]) .. ',"changes":[' .. table.concat(changes, ',') .. ']}')
return #changes
`)
